package main

import "github.com/ndnfw/ndnfw/internal/cmdline"

func main() {
	cmdline.CmdNDNFwd.Execute()
}
