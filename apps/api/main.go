package main

import "flag"

func main() {
	useDig := flag.Bool("dig", false, "wire dependencies with the dig container")
	flag.Parse()

	if *useDig {
		startWithDig()
		return
	}
	startManual()
}
