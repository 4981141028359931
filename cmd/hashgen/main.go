package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"swapsum/internal/auth"
	"swapsum/internal/config"
)

// hashgen produces the bcrypt hash that goes into the auth
// configuration. The password is read from -password or, when the flag
// is absent, from stdin so it stays out of shell history.
func main() {
	password := flag.String("password", "", "password to hash (omit to read from stdin)")
	flag.Parse()

	value := *password
	if value == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "failed to read password: %v\n", err)
			os.Exit(1)
		}
		value = strings.TrimRight(line, "\r\n")
	}

	if value == "" {
		fmt.Fprintln(os.Stderr, "password must not be empty")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
	fmt.Fprintf(os.Stderr, "\nSet %s_AUTH_ENABLED=true and %s_AUTH_PASSWORD_HASH to the value above.\n",
		config.EnvPrefix, config.EnvPrefix)
}
