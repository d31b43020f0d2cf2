// ledger-useradd adds a user to the users file read by ledgerd when
// authentication is enabled.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var configPath, usersFile, name, email, password string

	flagSet := pflag.NewFlagSet("ledger-useradd", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "read the users file path from this configuration")
	flagSet.StringVar(&usersFile, "users-file", "", "users file to update (overrides --config)")
	flagSet.StringVar(&name, "name", "", "display name recorded as the movement actor")
	flagSet.StringVar(&email, "email", "", "login email")
	flagSet.StringVar(&password, "password", "", "password (read from stdin when omitted)")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if usersFile == "" && configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		usersFile = cfg.Auth.UsersFile
	}
	if usersFile == "" {
		return fmt.Errorf("--users-file or a configuration with auth.users_file is required")
	}

	if password == "" {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	u, err := auth.AddUser(usersFile, name, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("added %s <%s> to %s\n", u.Name, u.Email, usersFile)
	return nil
}
