package export_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/appraise/internal/adapters/export"
	"github.com/example/appraise/internal/ports/secondary"
)

var rows = []secondary.CredentialRow{
	{Username: "engdeu0101", Password: "abcdefghjkmn", Token: "tok1"},
	{Username: "engdeu0102", Password: "pqrstuvwxyz2", Token: "tok2"},
}

func TestCSVSink(t *testing.T) {
	tests := []struct {
		name       string
		withTokens bool
		want       [][]string
	}{
		{
			name: "without tokens",
			want: [][]string{
				{"username", "password"},
				{"engdeu0101", "abcdefghjkmn"},
				{"engdeu0102", "pqrstuvwxyz2"},
			},
		},
		{
			name:       "with tokens",
			withTokens: true,
			want: [][]string{
				{"username", "password", "token"},
				{"engdeu0101", "abcdefghjkmn", "tok1"},
				{"engdeu0102", "pqrstuvwxyz2", "tok2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "creds.csv")
			require.NoError(t, export.NewCSVSink().Write(context.Background(), path, rows, tt.withTokens))

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()
			got, err := csv.NewReader(f).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestXLSXSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.xlsx")
	require.NoError(t, export.NewXLSXSink().Write(context.Background(), path, rows, true))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Credentials")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"username", "password", "token"},
		{"engdeu0101", "abcdefghjkmn", "tok1"},
		{"engdeu0102", "pqrstuvwxyz2", "tok2"},
	}, got)
}
