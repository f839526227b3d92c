// Command paseto-keygen prints a fresh ed25519 key pair as the base64
// encoded PEM values expected by API_PASETO_PUBLIC_KEY and
// API_PASETO_PRIVATE_KEY.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/goliatone/go-blog-auth/config"
	"github.com/goliatone/go-blog-auth/paseto"
)

func main() {
	envFormat := pflag.BoolP("env", "e", false, "print KEY=value lines for an .env file")
	pflag.Parse()

	if err := generate(os.Stdout, *envFormat); err != nil {
		fmt.Fprintf(os.Stderr, "paseto-keygen: %v\n", err)
		os.Exit(1)
	}
}

func generate(w io.Writer, envFormat bool) error {
	pub, priv, err := paseto.GenerateKeyPair()
	if err != nil {
		return err
	}

	pubPEM, err := paseto.MarshalPublicKeyPEM(pub)
	if err != nil {
		return err
	}

	privPEM, err := paseto.MarshalPrivateKeyPEM(priv)
	if err != nil {
		return err
	}

	if envFormat {
		_, err = fmt.Fprintf(w, "API_PASETO_PUBLIC_KEY=%s\nAPI_PASETO_PRIVATE_KEY=%s\n",
			config.EncodeKey(pubPEM), config.EncodeKey(privPEM))
		return err
	}

	_, err = fmt.Fprintf(w, "public: %s\nprivate: %s\n", config.EncodeKey(pubPEM), config.EncodeKey(privPEM))
	return err
}
