// Command jwk prints the JSON Web Key for an RSA PEM file so resource
// servers can be configured with the access token verification key.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/tokenforge/auth-service/internal/app/auth/keys"
)

func main() {
	var (
		path   string
		asSet  bool
		indent bool
	)
	pflag.StringVarP(&path, "key", "k", "./certs/public.pem", "public or private RSA key in PEM format")
	pflag.BoolVar(&asSet, "set", false, "wrap the key in a JWK set")
	pflag.BoolVar(&indent, "pretty", false, "indent the output")
	pflag.Parse()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	pub, err := keys.PublicKeyFromPEM(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var out any = keys.PublicJWK(pub)
	if asSet {
		out = keys.JWKSet{Keys: []keys.JWK{keys.PublicJWK(pub)}}
	}

	enc := json.NewEncoder(os.Stdout)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
