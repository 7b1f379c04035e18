package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthanhphan/go-transit-relay/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "transitctl",
	Short: "Send and receive files through a transit relay",
	Long: `transitctl talks to a transit relay over websockets.

  Send a file:    transitctl send --id my-transfer ./report.pdf
  Receive a file: transitctl receive --id my-transfer --out ./downloads

The sender blocks until a receiver connects; bytes are never stored on the relay.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "relay base URL")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	viper.SetEnvPrefix("TRANSIT")
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	return client.New(viper.GetString("server"))
}

// signalContext is cancelled on Ctrl-C so the relay sees a disconnect.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
