package main

import (
	oxboard "github.com/nategarelik/ox-board-sub009"
)

func main() {
	oxboard.Main()
}
