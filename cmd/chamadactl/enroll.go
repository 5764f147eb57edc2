package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var (
	enrollID       string
	enrollName     string
	enrollMetadata map[string]string
	enrollWorkers  int
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>",
	Short: "Enroll one person from a photo containing only their face",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := cli.readImage(args[0])
		if err != nil {
			return err
		}

		identity, err := cli.enrollment.Enroll(cmd.Context(), domain.EnrollRequest{
			IdentityID:  enrollID,
			DisplayName: enrollName,
			Metadata:    enrollMetadata,
			Image:       img,
		})
		if err != nil {
			return err
		}

		fmt.Printf("enrolled %s (%s)\n", identity.ID, identity.DisplayName)
		return nil
	},
}

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <dir>",
	Short: "Enroll every photo in a directory",
	Long: `Enroll every jpeg, png and webp file in a directory. File names are
<id>_<display name>.<ext>, with underscores standing for spaces in the name,
e.g. 2024001_Ana_Souza.jpg. A file named only <id>.<ext> uses the id as name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := imageFiles(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No images found.")
			return nil
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("enrolling"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		var mu sync.Mutex
		var failures []string

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(enrollWorkers)
		for _, path := range files {
			g.Go(func() error {
				defer func() { _ = bar.Add(1) }()

				err := enrollFile(ctx, path)
				if err == nil {
					return nil
				}
				// a bad photo never stops the batch; a cancelled run does
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)

		fmt.Printf("enrolled %d of %d\n", len(files)-len(failures), len(files))
		sort.Strings(failures)
		for _, f := range failures {
			fmt.Println("  failed", f)
		}
		if len(failures) > 0 {
			return fmt.Errorf("%d enrollments failed", len(failures))
		}
		return nil
	},
}

func init() {
	enrollCmd.Flags().StringVar(&enrollID, "id", "", "Identity id, e.g. a student number (required)")
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "Display name (required)")
	enrollCmd.Flags().StringToStringVar(&enrollMetadata, "meta", nil, "Metadata as key=value pairs")
	_ = enrollCmd.MarkFlagRequired("id")
	_ = enrollCmd.MarkFlagRequired("name")

	enrollDirCmd.Flags().IntVarP(&enrollWorkers, "workers", "w", 4, "Number of photos enrolled in parallel")

	rootCmd.AddCommand(enrollCmd, enrollDirCmd)
}

func enrollFile(ctx context.Context, path string) error {
	id, name, err := parseEnrollFilename(filepath.Base(path))
	if err != nil {
		return err
	}
	img, err := cli.readImage(path)
	if err != nil {
		return err
	}
	_, err = cli.enrollment.Enroll(ctx, domain.EnrollRequest{IdentityID: id, DisplayName: name, Image: img})
	return err
}

// parseEnrollFilename splits "2024001_Ana_Souza.jpg" into id and display name.
func parseEnrollFilename(base string) (string, string, error) {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	id, rest, _ := strings.Cut(stem, "_")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", errors.New("file name has no id")
	}
	name := strings.TrimSpace(strings.ReplaceAll(rest, "_", " "))
	if name == "" {
		name = id
	}
	return id, name, nil
}

// imageFiles lists the supported images directly inside dir, sorted by name.
func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".webp":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
