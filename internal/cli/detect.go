package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
)

type detectReport struct {
	File       string           `json:"file"`
	Format     constants.Format `json:"format"`
	Method     string           `json:"method"`
	Pages      int              `json:"pages"`
	TextChars  int              `json:"text_chars"`
	Images     int              `json:"images"`
	ImageBytes int              `json:"image_bytes"`
	Preview    string           `json:"preview,omitempty"`
}

func newDetectCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Check a file's signature and show what the parser extracts, without calling the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := checkFile(path); err != nil {
				return err
			}

			a, err := g.build(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Registry.Parse(cmd.Context(), path)
			if err != nil {
				return err
			}
			format, _ := constants.FormatForExt(filepath.Ext(path))
			return writeJSON(cmd.OutOrStdout(), detectReport{
				File:       filepath.Base(path),
				Format:     format,
				Method:     res.Method,
				Pages:      res.Pages,
				TextChars:  utf8.RuneCountInString(res.Text),
				Images:     len(res.Images),
				ImageBytes: res.ImageBytes(),
				Preview:    entity.Preview(res.Text, 200),
			})
		},
	}
}

// checkFile runs the signature check on the head of path.
func checkFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return parse.CheckSignature(filepath.Ext(path), head[:n])
}
