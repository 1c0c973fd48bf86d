package main

import (
	"net/http"

	"github.com/treehollow/ninefs"
)

func serveAdmin(addr string) error {
	return http.ListenAndServe(addr, ninefs.AdminRouter())
}
