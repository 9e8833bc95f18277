package main

import "minicode/internal/server"

func main() {
	server.StartGinServer()
}
