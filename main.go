package main

import "github.com/nextlevelbuilder/msgauth/cmd"

func main() {
	cmd.Execute()
}
