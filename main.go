package main

import "github.com/cloudcore-labs/notification-hub/cmd"

func main() {
	cmd.Execute()
}
