package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive the file offered under a transfer ID",
	RunE:  runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().String("id", "", "transfer ID (required)")
	receiveCmd.Flags().StringP("out", "o", ".", "directory to save the file in")
	_ = receiveCmd.MarkFlagRequired("id")

	_ = viper.BindPFlag("receive.id", receiveCmd.Flags().Lookup("id"))
	_ = viper.BindPFlag("receive.out", receiveCmd.Flags().Lookup("out"))
}

func runReceive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c, err := newClient()
	if err != nil {
		return err
	}

	// Write to a temp file first; the name is only known once the relay sends metadata.
	dir := viper.GetString("receive.out")
	tmp, err := os.CreateTemp(dir, ".transit-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	started := time.Now()
	meta, err := c.Receive(ctx, viper.GetString("receive.id"), tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	name := filepath.Base(meta.Name)
	if name == "." || name == string(filepath.Separator) {
		return errors.New("relay sent an unusable file name")
	}
	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}

	elapsed := time.Since(started)
	rate := uint64(float64(meta.Size) / max(elapsed.Seconds(), 0.001))
	fmt.Fprintf(cmd.OutOrStdout(), "Received %s into %s in %s (%s/s)\n",
		meta, dest, elapsed.Round(time.Millisecond), humanize.IBytes(rate))
	return nil
}
