package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/nonce"
	"smart-locker-control/internal/qr"
	"smart-locker-control/internal/service"
)

var (
	qrData   string
	qrOutput string
	qrASCII  bool
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "QR code utilities",
}

var qrGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a QR code, by default a one-time locker access code",
	Run: func(cmd *cobra.Command, args []string) {
		withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
			data := qrData
			var expiresAt *time.Time
			if data == "" {
				token, expires, err := svc.Signer.IssueAccessCode(ctx, svc.Locker.ID())
				if err != nil {
					return err
				}
				if nonce.StoreType(svc.Config.NonceStore) != nonce.SQL {
					slog.Warn("Nonce store is not shared, the server will reject this code", "nonce_store", svc.Config.NonceStore)
				}
				data = qr.AccessCode(token)
				expiresAt = &expires
				fmt.Fprintf(os.Stderr, "Access code valid until %s\n", expires.Local().Format(time.DateTime))
			}

			if qrASCII || qrOutput == "" {
				art, err := qr.ASCII(data)
				if err != nil {
					return err
				}
				fmt.Print(art)
			}
			if qrOutput != "" {
				png, err := qr.Encode(data, svc.Config.QR.ImageSize)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrOutput, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Wrote %s\n", qrOutput)
			}

			kind := string(qr.Classify(data).Type)
			_, err := svc.QRLog.Append(ctx, activity.QRGenerated(cliUser, data, kind, expiresAt))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(qrCmd)
	qrGenerateCmd.Flags().StringVarP(&qrData, "data", "d", "", "payload to encode (default: new access code)")
	qrGenerateCmd.Flags().StringVarP(&qrOutput, "output", "o", "", "write a PNG to this file")
	qrGenerateCmd.Flags().BoolVar(&qrASCII, "ascii", false, "print the code to the terminal")
	qrCmd.AddCommand(qrGenerateCmd)
}
