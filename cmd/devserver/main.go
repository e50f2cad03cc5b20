package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/larder-app/larder/internal/buildinfo"
	"github.com/larder-app/larder/internal/devserver"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	addr := flag.String("a", "127.0.0.1:8080", "address and port to listen on")
	flag.Parse()

	log.Printf("devserver listening on %s", *addr)
	if err := http.ListenAndServe(*addr, devserver.New().Router()); err != nil {
		log.Fatalf("%v", err)
	}
}
