// Command logmon: host-side serial log monitor. Streams the board's log
// lines to stdout with receive timestamps.
//
//	go run ./cmd/logmon -port /dev/ttyACM0 -baud 115200
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tarm/serial"
)

func main() {
	port := flag.String("port", "/dev/ttyACM0", "serial port device")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	s, err := serial.OpenPort(&serial.Config{Name: *port, Baud: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logmon: open %s: %v\n", *port, err)
		os.Exit(1)
	}
	defer s.Close()

	fmt.Printf("logmon: listening on %s @ %d\n", *port, *baud)

	sc := bufio.NewScanner(s)
	for sc.Scan() {
		fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), sc.Text())
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "logmon: read: %v\n", err)
		os.Exit(1)
	}
}
