package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/store"
)

// codeAlphabet omits characters that are easy to misread on a printed card (0/O, 1/I/L).
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

type seedFile struct {
	Photos       []seedPhoto       `toml:"photos"`
	Participants []seedParticipant `toml:"participants"`
}

type seedPhoto struct {
	ID           int64  `toml:"id"`
	URL          string `toml:"url"`
	ThumbnailURL string `toml:"thumbnail_url"`
}

type seedParticipant struct {
	Name string `toml:"name"`
	Code string `toml:"code"`
}

type seedResult struct {
	Photos       int                  `json:"photos"`
	Participants []models.Participant `json:"participants"`
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var (
		file     string
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load photos and participants from a TOML file",
		Long: `Upserts the photo catalog and guest list. Photos are keyed by id and
participants by code. A participant without a code keeps the code already
issued under the same name, or gets a new random one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := readSeedFile(file)
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			res, err := applySeed(cmd.Context(), st, seed)
			if err != nil {
				return err
			}
			if jsonMode {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d photos and %d participants\n", res.Photos, len(res.Participants))
			rows := make([][]string, 0, len(res.Participants))
			for _, p := range res.Participants {
				rows = append(rows, []string{p.DisplayName(), p.Code})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Code"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.toml", "Seed file path")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")
	return cmd
}

func readSeedFile(path string) (*seedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return decodeSeed(f)
}

func decodeSeed(r io.Reader) (*seedFile, error) {
	var seed seedFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *seedFile) validate() error {
	photoIDs := make(map[int64]bool, len(s.Photos))
	for _, p := range s.Photos {
		if p.ID <= 0 {
			return fmt.Errorf("photo id must be positive, got %d", p.ID)
		}
		if strings.TrimSpace(p.URL) == "" {
			return fmt.Errorf("photo %d: url is required", p.ID)
		}
		if photoIDs[p.ID] {
			return fmt.Errorf("duplicate photo id %d", p.ID)
		}
		photoIDs[p.ID] = true
	}
	codes := make(map[string]bool, len(s.Participants))
	for _, p := range s.Participants {
		if strings.TrimSpace(p.Name) == "" {
			return errors.New("participant name is required")
		}
		if p.Code == "" {
			continue
		}
		if codes[p.Code] {
			return fmt.Errorf("duplicate participant code %q", p.Code)
		}
		codes[p.Code] = true
	}
	return nil
}

func applySeed(ctx context.Context, st store.Store, seed *seedFile) (*seedResult, error) {
	for _, p := range seed.Photos {
		photo := models.Photo{ID: p.ID, URL: p.URL}
		if p.ThumbnailURL != "" {
			thumb := p.ThumbnailURL
			photo.ThumbnailURL = &thumb
		}
		if err := st.UpsertPhoto(ctx, photo); err != nil {
			return nil, fmt.Errorf("upsert photo %d: %w", p.ID, err)
		}
	}

	existing, err := st.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	codeByName := make(map[string]string, len(existing))
	for _, p := range existing {
		codeByName[p.Name] = p.Code
	}

	res := &seedResult{Photos: len(seed.Photos)}
	for _, sp := range seed.Participants {
		code := sp.Code
		if code == "" {
			code = codeByName[strings.TrimSpace(sp.Name)]
		}
		if code == "" {
			if code, err = unusedCode(ctx, st); err != nil {
				return nil, err
			}
		}
		p := &models.Participant{Name: strings.TrimSpace(sp.Name), Code: code}
		if err := st.UpsertParticipant(ctx, p); err != nil {
			return nil, fmt.Errorf("upsert participant %q: %w", sp.Name, err)
		}
		res.Participants = append(res.Participants, *p)
	}
	return res, nil
}

func unusedCode(ctx context.Context, st store.Store) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := newCode()
		if err != nil {
			return "", err
		}
		_, err = st.ParticipantByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
	}
	return "", errors.New("could not generate an unused access code")
}

func newCode() (string, error) {
	size := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
