package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"skep/internal/app"
)

var (
	home       string
	passphrase string
	relayURL   string

	appWire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "skep",
		Short: "End-to-end encrypted chat CLI with authenticated key exchange",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".skep")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			appWire = app.NewWire(app.Config{Home: home, RelayURL: relayURL})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.skep)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		handshakeCmd(),
		sendCmd(),
		recvCmd(),
		contactsCmd(),
		verifyCmd(),
		logoutCmd(),
	)
	return root.Execute()
}
