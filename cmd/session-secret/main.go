// cmd/session-secret prints a random SESSION_HMAC_SECRET line for .env files.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

func main() {
	n := flag.Int("bytes", 32, "number of random bytes")
	flag.Parse()

	if err := run(*n, os.Stdout, rand.Reader); err != nil {
		log.Fatal(err)
	}
}

func run(n int, out io.Writer, reader io.Reader) error {
	if n < 32 {
		return errors.New("bytes must be at least 32")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "SESSION_HMAC_SECRET=%s\n", hex.EncodeToString(buf))
	return err
}
