package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var (
	sessionID   string
	sessionName string
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize every face in a photo, optionally marking attendance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := cli.readImage(args[0])
		if err != nil {
			return err
		}

		if sessionID == "" {
			rec, err := cli.recognition.Recognize(cmd.Context(), img)
			if err != nil {
				return err
			}
			printRecognition(rec)
			return nil
		}

		outcome, err := cli.attendance.TakeAttendance(cmd.Context(), domain.SessionInput{ID: sessionID, Name: sessionName}, img)
		if err != nil {
			return err
		}
		printRecognition(outcome.Recognition)
		fmt.Printf("\nmarked %d present in session %s\n", len(outcome.Recorded), outcome.Session.ID)
		return nil
	},
}

func init() {
	recognizeCmd.Flags().StringVar(&sessionID, "session", "", "Mark recognized people present in this session")
	recognizeCmd.Flags().StringVar(&sessionName, "session-name", "", "Name for a new session (default: the session id)")
	rootCmd.AddCommand(recognizeCmd)
}

func printRecognition(rec *domain.Recognition) {
	if rec.Warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", rec.Warning)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FACE\tIDENTITY\tNAME\tCONFIDENCE\tDISTANCE\tLOCATION")
	fmt.Fprintln(w, "----\t--------\t----\t----------\t--------\t--------")
	for _, r := range rec.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%.3f\t%.0f,%.0f %.0fx%.0f\n",
			r.ProbeIndex, r.IdentityID, r.DisplayName, r.Confidence, r.Distance,
			r.Box.X, r.Box.Y, r.Box.Width, r.Box.Height)
	}
	_ = w.Flush()

	fmt.Printf("\n%d faces, %d unknown, gallery of %d\n", rec.FacesDetected, rec.UnknownCount, rec.GallerySize)
}
