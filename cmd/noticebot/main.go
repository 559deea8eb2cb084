// Package main is the noticebot executable.
package main

import "github.com/JakeFAU/notice-summarizer/cmd"

func main() {
	cmd.Execute()
}
