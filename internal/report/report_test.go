package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []database.IdentityRecord {
	return []database.IdentityRecord{
		{ID: 1, Name: "Ada", Loan: database.Free()},
		{ID: 2, Name: "Hopper, Grace", Loan: database.Holding("BOOK-0042")},
		{ID: 3, Name: "Linus", Loan: database.Free()},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_Golden(t *testing.T) {
	tests := []struct {
		golden string
		format Format
	}{
		{"records_table", FormatTable},
		{"records_csv", FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, sampleRecords(), tt.format))
			newGoldie(t).Assert(t, tt.golden, buf.Bytes())
		})
	}
}

func TestRender_EmptyCSVHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, FormatCSV))
	assert.Equal(t, "id,name,loan_state,loan_item\n", buf.String())
}

func TestRender_UnknownFormat(t *testing.T) {
	assert.Error(t, Render(io.Discard, sampleRecords(), Format("xml")))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"CSV", FormatCSV, false},
		{" csv ", FormatCSV, false},
		{"json", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseFormat(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseFormat(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &s3.PutObjectOutput{}, nil
}

func TestExport_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	e := NewExporter(config.ReportConfig{})

	loc, err := e.Export(context.Background(), path, []byte("id\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, path, loc)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id\n", string(data))
}

func TestExport_S3(t *testing.T) {
	fake := &fakeS3{}
	e := &Exporter{s3: fake}

	loc, err := e.Export(context.Background(), "s3://reports/daily/records.csv", []byte("id\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/daily/records.csv", loc)
	require.NotNil(t, fake.input)
	assert.Equal(t, "reports", *fake.input.Bucket)
	assert.Equal(t, "daily/records.csv", *fake.input.Key)
	assert.Equal(t, "text/csv", *fake.input.ContentType)
	assert.Equal(t, "id\n", string(fake.body))
}

func TestExport_S3DefaultBucket(t *testing.T) {
	fake := &fakeS3{}
	e := &Exporter{cfg: config.ReportConfig{S3Bucket: "kiosk"}, s3: fake}

	loc, err := e.Export(context.Background(), "s3:///records.txt", []byte("x"), FormatTable)
	require.NoError(t, err)
	assert.Equal(t, "s3://kiosk/records.txt", loc)
	assert.Equal(t, "text/plain; charset=utf-8", *fake.input.ContentType)
}

func TestExport_S3Errors(t *testing.T) {
	ctx := context.Background()

	_, err := (&Exporter{s3: &fakeS3{}}).Export(ctx, "s3:///records.csv", nil, FormatCSV)
	assert.ErrorContains(t, err, "bucket required")

	_, err = (&Exporter{s3: &fakeS3{}}).Export(ctx, "s3://reports/", nil, FormatCSV)
	assert.ErrorContains(t, err, "key missing")

	boom := errors.New("access denied")
	_, err = (&Exporter{s3: &fakeS3{err: boom}}).Export(ctx, "s3://reports/a.csv", nil, FormatCSV)
	assert.ErrorIs(t, err, boom)
}
