package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/mutation"
	"github.com/dmitrijs2005/memojournal/internal/upload"
	"github.com/spf13/cobra"
)

type memoryFlags struct {
	title string
	date  string
	text  string
	tags  []string
	place string
	lat   float64
	lng   float64
}

func (f *memoryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "title of the memory")
	cmd.Flags().StringVar(&f.date, "date", "", "date of the memory, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.text, "text", "", `free text; "-" reads lines from stdin`)
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&f.place, "place", "", "place name")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "place latitude")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "place longitude")
}

func (f *memoryFlags) location() *models.Location {
	if f.place == "" {
		return nil
	}
	return &models.Location{Name: f.place, Lat: f.lat, Lng: f.lng}
}

func (c *CLI) addCommand() *cobra.Command {
	var (
		f      memoryFlags
		images []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a memory",
		Long: `Add a memory. It shows up in listings at once and is confirmed once the
memory store accepts it. Images are compressed and uploaded first; if any of
them fails after all retries, nothing is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := c.app.UserID()
			if err != nil {
				return err
			}

			if f.title == "" {
				if f.title, err = GetSimpleText(c.in, "Title", c.out); err != nil {
					return err
				}
			}
			if f.date == "" {
				if f.date, err = GetSimpleText(c.in, "Date (YYYY-MM-DD)", c.out); err != nil {
					return err
				}
			}
			if f.text == "-" {
				if f.text, err = GetMultiline(c.in, "Text", c.out); err != nil {
					return err
				}
			}

			var d models.Draft
			if f.date != "" {
				if d.Date, err = models.ParseDate(f.date); err != nil {
					return err
				}
			}
			d.Title, d.Text, d.Tags, d.Location = f.title, f.text, f.tags, f.location()

			files, err := readSources(images)
			if err != nil {
				return err
			}

			rec, err := c.app.Journal.Create(cmd.Context(), userID, d, files, c.progressPrinter())
			if mutation.IsCancelled(err) {
				return fmt.Errorf("upload aborted, memory not saved")
			}
			if err != nil {
				for _, i := range upload.ErrorIndexes(err) {
					fmt.Fprintf(c.out, "failed: %s\n", files[i].Name)
				}
				return fmt.Errorf("failed to add memory: %w", err)
			}

			fmt.Fprintln(c.out, "Memory saved.")
			printRecord(c.out, rec)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVar(&images, "image", nil, "image file to attach (repeatable)")
	return cmd
}

func readSources(paths []string) ([]upload.Source, error) {
	files := make([]upload.Source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		files = append(files, upload.Source{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func (c *CLI) progressPrinter() mutation.ProgressFunc {
	var mu sync.Mutex
	return func(task models.UploadTask, overall int) {
		mu.Lock()
		defer mu.Unlock()
		line := fmt.Sprintf("[%3d%%] %s: %s", overall, task.Filename, task.Status)
		if task.Status == models.UploadUploading {
			line = fmt.Sprintf("[%3d%%] %s: %d%%", overall, task.Filename, task.Progress)
		}
		if task.Error != "" {
			line += " (" + task.Error + ")"
		}
		fmt.Fprintln(c.out, line)
	}
}
