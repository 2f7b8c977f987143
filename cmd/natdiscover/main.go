// Command natdiscover runs an RFC 3489 NAT-behavior discovery against a
// STUN server and prints the resulting classification.
//
// Build and run:
//
//	go run ./cmd/natdiscover -server stun.ekiga.net:3478
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	stun "github.com/nilgiri/stunnat"
)

func main() {
	server := flag.String("server", stun.DefaultServerAddr, "STUN server address (host:port)")
	software := flag.String("software", "stunnat", "SOFTWARE attribute sent with each probe")
	localIP := flag.String("local-ip", "0.0.0.0", "local IP to bind the discovery socket to")
	localPort := flag.Uint("local-port", 0, "local port to bind the discovery socket to (0 = ephemeral)")
	flag.Parse()

	client, err := stun.NewClient(stun.ClientConfig{
		ServerAddr:   *server,
		LocalIP:      *localIP,
		LocalPort:    uint16(*localPort),
		SoftwareName: *software,
	})
	if err != nil {
		log.Fatalf("natdiscover: %v", err)
	}
	defer client.Close()

	fmt.Fprintf(os.Stderr, "natdiscover: probing %s\n", *server)

	nat, host, err := client.Discover()
	if err != nil {
		fmt.Printf("NAT type: %s (%s)\n", nat, nat.Description())
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("NAT type: %s (%s)\n", nat, nat.Description())
	fmt.Printf("external address: %s\n", host)
}
