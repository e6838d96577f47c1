package main

import (
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidshare/client/internal/models"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := ctx.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			if err := ctx.catalog.Refresh(cmdCtx); err != nil {
				return err
			}

			records := ctx.catalog.List()
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos yet.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					strconv.FormatInt(record.ID, 10),
					record.Title,
					valueOrDash(record.ShareURL),
					formatExpiry(record.ExpiresAt),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Share URL", "Expires"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var name string
	var mimeType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := ctx.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			path := args[0]
			if name == "" {
				name = filepath.Base(path)
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(path))
				if mimeType == "" {
					mimeType = "application/octet-stream"
				}
			}

			record, err := ctx.uploader.Upload(cmdCtx, models.UploadRequest{
				URI:      path,
				Name:     name,
				MIMEType: mimeType,
			}, newUploadPrinter(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %q as video %d\n", record.Title, record.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "File name to register (defaults to the local name)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (detected from the extension when omitted)")

	return cmd
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <id>",
		Short: "Resolve a playback URL for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid video id %q", args[0])
			}

			cmdCtx, err := ctx.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			url, err := ctx.catalog.PlaybackURL(cmdCtx, id)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
