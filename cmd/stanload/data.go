package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-stanload/cmdstan"
	"github.com/robert-malhotra/go-stanload/internal/config"
	"github.com/robert-malhotra/go-stanload/source"
)

var dataOut string

var dataCmd = &cobra.Command{
	Use:   "data <config.yaml>",
	Short: "Read the declared data and print it as CmdStan JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		data, err := source.NewReader(logger).Read(cmd.Context(), cfg.Data.Groups)
		if err != nil {
			return err
		}

		doc, skipped, err := cmdstan.EncodeData(data)
		if err != nil {
			return err
		}
		for _, key := range skipped {
			logger.Info("non-numeric value left out", zap.String("key", key))
		}

		if dataOut == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		}
		if err := os.WriteFile(dataOut, doc, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dataOut, err)
		}
		logger.Info("data written", zap.String("file", dataOut), zap.Int("keys", len(data)-len(skipped)))
		return nil
	},
}

func init() {
	dataCmd.Flags().StringVarP(&dataOut, "output", "o", "", "Write the JSON to this file instead of stdout")
}
