package accounts

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	accountstore "github.com/andrebq/jukebox/accounts"
	"github.com/andrebq/jukebox/internal/cmdflags"
	"github.com/andrebq/jukebox/sessions"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "Manage accounts directly on the store, without going through the HTTP surface",
		Subcommands: []*cli.Command{
			registerCmd(),
		},
	}
}

func registerCmd() *cli.Command {
	storeDir := "jukebox-data"
	email := ""
	username := ""
	displayName := ""
	hashCost := sessions.DefaultHashCost
	return &cli.Command{
		Name:  "register",
		Usage: "Create a new account, prompting for the password on the terminal",
		Flags: []cli.Flag{
			cmdflags.StoreDir(&storeDir),
			&cli.StringFlag{
				Name:        "email",
				Required:    true,
				Destination: &email,
			},
			&cli.StringFlag{
				Name:        "username",
				Required:    true,
				Destination: &username,
			},
			&cli.StringFlag{
				Name:        "display-name",
				Destination: &displayName,
			},
			&cli.IntFlag{
				Name:        "hash-cost",
				Usage:       "bcrypt cost used to hash the password",
				Value:       hashCost,
				Destination: &hashCost,
			},
		},
		Action: func(ctx *cli.Context) error {
			passwd, err := promptPassword()
			if err != nil {
				return err
			}
			hash, err := sessions.HashPassword(passwd, hashCost)
			if err != nil {
				return err
			}
			store, err := accountstore.Open(ctx.Context, storeDir, true)
			if err != nil {
				return err
			}
			defer store.Close()
			acct := &accountstore.Account{
				Email:        email,
				Username:     username,
				PasswordHash: hash,
				DisplayName:  displayName,
			}
			err = store.Insert(ctx.Context, acct)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "account %v created\n", acct.ID)
			return nil
		},
	}
}

func promptPassword() ([]byte, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	passwd, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("unable to read password, cause %w", err)
	}
	if len(passwd) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	again, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("unable to read password confirmation, cause %w", err)
	}
	if !bytes.Equal(passwd, again) {
		return nil, errors.New("passwords do not match")
	}
	return passwd, nil
}
