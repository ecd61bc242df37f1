package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"calendarium/pkg/password"
)

func hashPasswordCmd() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Print a bcrypt hash for seeding the users table",
		ArgsUsage: "<password>",
		Action: func(c *cli.Context) error {
			plain := c.Args().First()
			if plain == "" {
				return errors.New("password argument is required")
			}
			hash, err := password.NewBcrypt().Hash(plain)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, hash)
			return err
		},
	}
}
