package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sendCmd = &cobra.Command{
	Use:   "send FILE",
	Short: "Offer a file under a transfer ID and wait for the receiver",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("id", "", "transfer ID (a new one is requested when empty)")
	sendCmd.Flags().String("type", "", "content type (guessed from the extension when empty)")

	_ = viper.BindPFlag("send.id", sendCmd.Flags().Lookup("id"))
	_ = viper.BindPFlag("send.type", sendCmd.Flags().Lookup("type"))
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c, err := newClient()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	id := viper.GetString("send.id")
	if id == "" {
		if id, err = c.NewID(ctx); err != nil {
			return fmt.Errorf("request transfer id: %w", err)
		}
	}

	contentType := viper.GetString("send.type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(info.Name()))
	}

	meta := domain.FileMetadata{Name: info.Name(), Size: info.Size(), Type: contentType}
	fmt.Fprintf(cmd.OutOrStdout(), "Sending %s as %q, waiting for a receiver...\n", meta, id)

	if err := c.Send(ctx, id, meta, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %s.\n", humanize.IBytes(uint64(info.Size())))
	return nil
}
