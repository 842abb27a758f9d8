package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var event string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one export and print the response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if event != "" && !json.Valid([]byte(event)) {
				return fmt.Errorf("--event is not valid JSON")
			}

			rt, err := loadRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			resp := rt.exportService(cmd.Context()).Invoke(cmd.Context(), json.RawMessage(event))

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if resp.StatusCode != http.StatusOK {
				return errors.New("export failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&event, "event", "", "trigger event as JSON")
	return cmd
}
