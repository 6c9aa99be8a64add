package core

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func parsedDoc(t *testing.T) (*Service, *Document) {
	t.Helper()
	svc := newTestService(t, nil, Options{})
	doc, err := svc.Parse(context.Background(), "tariff.Qs", strings.NewReader(tariffDoc), -1)
	require.NoError(t, err)
	return svc, doc
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{"JSON", FormatJSON},
		{"yml", FormatYAML},
		{" yaml ", FormatYAML},
		{"qs", FormatEfile},
		{"efile", FormatEfile},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExport_CSV(t *testing.T) {
	svc, doc := parsedDoc(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(&buf, doc.ID, "values", FormatCSV))
	assert.Equal(t, "year,month,voltage,price\n2023,1,220,0.3512\n2023,2,110,0.4\n", buf.String())

	err := svc.Export(&bytes.Buffer{}, doc.ID, "", FormatCSV)
	assert.ErrorIs(t, err, ErrTableRequired)
}

func TestExport_JSON(t *testing.T) {
	svc, doc := parsedDoc(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(&buf, doc.ID, "", FormatJSON))

	var got struct {
		Name   string `json:"name"`
		Tables []struct {
			Name    string `json:"name"`
			Columns []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"columns"`
			Rows [][]any `json:"rows"`
		} `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "tariff.Qs", got.Name)
	require.Len(t, got.Tables, 2)
	values := got.Tables[1]
	assert.Equal(t, "values", values.Name)
	assert.Equal(t, "float", values.Columns[3].Type)
	assert.Equal(t, []any{2023.0, 1.0, 220.0, 0.3512}, values.Rows[0])
}

func TestExport_YAML(t *testing.T) {
	svc, doc := parsedDoc(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(&buf, doc.ID, "units", FormatYAML))

	var got struct {
		Name string
		Rows [][]string
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "units", got.Name)
	assert.Equal(t, [][]string{{"-", "-", "kV", "yuan/kWh"}}, got.Rows)
}

func TestExport_EfileRoundTrip(t *testing.T) {
	svc, doc := parsedDoc(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(&buf, doc.ID, "", FormatEfile))

	back, err := efile.NewParser(efile.DefaultFormatSpec()).ParseBytes("export", buf.Bytes())
	require.NoError(t, err)
	assert.True(t, back.Equal(doc.Result), buf.String())
}

func TestExport_Errors(t *testing.T) {
	svc, doc := parsedDoc(t)

	assert.ErrorIs(t, svc.Export(&bytes.Buffer{}, doc.ID, "nope", FormatJSON), ErrTableNotFound)
	assert.ErrorIs(t, svc.Export(&bytes.Buffer{}, doc.ID, "", Format("xml")), ErrUnknownFormat)
}

func TestFormat_Metadata(t *testing.T) {
	assert.Equal(t, ".Qs", FormatEfile.Extension())
	assert.Equal(t, ".csv", FormatCSV.Extension())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
}
