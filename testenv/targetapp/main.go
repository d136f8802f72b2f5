// Deliberately discoverable web application used as the reconx end-to-end
// scan target. It serves a small site with hidden paths, an auth-gated
// admin area, and a banner TCP service. DO NOT expose it beyond localhost.
package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"
)

func main() {
	httpAddr := os.Getenv("TARGETAPP_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":18080"
	}
	tcpAddr := os.Getenv("TARGETAPP_TCP_ADDR")
	if tcpAddr == "" {
		tcpAddr = ":18022"
	}

	go serveBanner(tcpAddr)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	http.HandleFunc("/", indexHandler)
	http.HandleFunc("/login", pageHandler("Sign In", "<form method=post></form>"))
	http.HandleFunc("/dashboard", pageHandler("Dashboard", "<p>Metrics</p>"))
	http.HandleFunc("/admin", adminHandler)
	http.HandleFunc("/backup", forbiddenHandler)
	http.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusMovedPermanently)
	})
	http.HandleFunc("/api/v1/status", apiStatusHandler)

	log.Printf("target app listening on %s (http) and %s (tcp)", httpAddr, tcpAddr)
	log.Fatal(http.ListenAndServe(httpAddr, nil))
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<html><head><title>Not Found</title></head><body>404</body></html>")
		return
	}
	pageHandler("Target App", "<h1>Welcome</h1>")(w, r)
}

func pageHandler(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body>%s</body></html>", title, body)
	}
}

func adminHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer letmein" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	pageHandler("Admin", "<h1>Admin</h1>")(w, r)
}

func forbiddenHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
}

func apiStatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok","version":"1.0.0"}`)
}

// serveBanner answers every TCP connection with a fixed SSH-style banner.
func serveBanner(addr string) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("banner listener failed: %v", err)
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			c.Write([]byte("SSH-2.0-TargetApp_1.0\r\n")) //nolint:errcheck
			time.Sleep(time.Second)
		}(conn)
	}
}
