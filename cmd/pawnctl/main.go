package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"pawnhub/crypto"
)

const passphraseEnv = "PAWN_KEYSTORE_PASSPHRASE"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "addr":
		err = runAddr(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "pawnctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  pawnctl keygen -out <keystore.json>
  pawnctl addr   -in  <keystore.json>

The keystore passphrase is read from `+passphraseEnv+` or prompted for.`)
}

func passphrase() (string, error) {
	if pass, ok := os.LookupEnv(passphraseEnv); ok && pass != "" {
		return pass, nil
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty passphrase")
	}
	return string(raw), nil
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "pawn-key.json", "path to write the encrypted keystore file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pass, err := passphrase()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func runAddr(args []string) error {
	fs := flag.NewFlagSet("addr", flag.ExitOnError)
	in := fs.String("in", "pawn-key.json", "path to the encrypted keystore file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pass, err := passphrase()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(*in, pass)
	if err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}
