package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const passphraseEnv = "SETTLE_KEYSTORE_PASSPHRASE"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "digest":
		return runDigest(args[1:], stdout, stderr)
	case "sign-intent":
		return runSignIntent(args[1:], stdout, stderr)
	case "call":
		return runCall(args[1:], stdout, stderr)
	case "host-token":
		return runHostToken(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: settle-cli <command> [flags]

Commands:
  keygen       --out <keystore>                        create an encrypted key
  address      --keystore <keystore>                   print the key address
  digest       --intent <file> [domain flags]          print the typed-data digest of an intent
  sign-intent  --intent <file> --keystore <keystore>   sign an intent and print the hook payload
  call         --keystore <keystore> --path <path>     send a signed request to settled
  host-token   [--ttl 10m]                             mint a hook bearer token from SETTLED_HOST_TOKEN

Domain flags: --chain-id (default 31337) --verifying-contract <address>
The keystore passphrase is read from ` + passphraseEnv + ` or prompted for.`)
}
