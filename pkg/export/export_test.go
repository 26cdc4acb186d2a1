package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset(rows int) Dataset {
	data := Dataset{Title: "Club roster", Headers: []string{"username", "attending_hours", "qualified"}}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, []string{fmt.Sprintf("member%02d", i), "6", "yes"})
	}
	return data
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset(2))
	require.NoError(t, err)
	assert.Equal(t, "username,attending_hours,qualified\nmember00,6,yes\nmember01,6,yes\n", string(out))
}

func TestPDFExporterRenderPaginates(t *testing.T) {
	out, err := NewPDFExporter().Render(rosterDataset(75))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRejectsRaggedRows(t *testing.T) {
	data := rosterDataset(1)
	data.Rows = append(data.Rows, []string{"short"})

	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	e, err := ForFormat("")
	require.NoError(t, err)
	assert.Equal(t, "csv", e.Extension())

	e, err = ForFormat(FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", e.ContentType())

	_, err = ForFormat("xlsx")
	assert.Error(t, err)
}
