package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestModInfo_DecodeProfile(t *testing.T) {
	body := `{
		"_idRow": 615376,
		"_sName": "Palette Overhaul",
		"_sDescription": "Recolours every stage",
		"_aSubmitter": {"_sName": "alice", "_sAvatarUrl": "https://images.example/alice.png"},
		"_aFiles": [{"_sFile": "palette.7z", "_sDownloadUrl": "https://files.example/dl/1"}]
	}`

	var info ModInfo
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	assert.Equal(t, 615376, info.ID)
	assert.Equal(t, "Palette Overhaul", info.Name)
	assert.Equal(t, Submitter{Name: "alice", AvatarURL: "https://images.example/alice.png"}, info.Submitter)
	assert.True(t, info.HasDescription())
	assert.Equal(t, "Recolours every stage", info.DescriptionOrEmpty())
	assert.Nil(t, info.Text)
	assert.Equal(t, "", info.TextOrEmpty())

	var files FileResponse
	require.NoError(t, json.Unmarshal([]byte(body), &files))
	require.Len(t, files.Files, 1)
	require.NotNil(t, files.Files[0].Filename)
	require.NotNil(t, files.Files[0].DownloadURL)
	assert.Equal(t, "palette.7z", *files.Files[0].Filename)
	assert.Equal(t, "https://files.example/dl/1", *files.Files[0].DownloadURL)

	var partial FileResponse
	require.NoError(t, json.Unmarshal([]byte(`{"_aFiles":[{"_sFile":"only-name.7z"}]}`), &partial))
	require.Len(t, partial.Files, 1)
	assert.Nil(t, partial.Files[0].DownloadURL, "absent fields stay nil")
}

func TestModInfo_Equal(t *testing.T) {
	base := ModInfo{ID: 1, Name: "a", Submitter: Submitter{Name: "s"}, Description: strPtr("d")}

	tests := []struct {
		name  string
		other ModInfo
		want  bool
	}{
		{"same values distinct pointers", ModInfo{ID: 1, Name: "a", Submitter: Submitter{Name: "s"}, Description: strPtr("d")}, true},
		{"description absent", ModInfo{ID: 1, Name: "a", Submitter: Submitter{Name: "s"}}, false},
		{"empty description is not absent", ModInfo{ID: 1, Name: "a", Submitter: Submitter{Name: "s"}, Description: strPtr("")}, false},
		{"different text", ModInfo{ID: 1, Name: "a", Submitter: Submitter{Name: "s"}, Description: strPtr("d"), Text: strPtr("t")}, false},
		{"different submitter avatar", ModInfo{ID: 1, Name: "a", Submitter: Submitter{Name: "s", AvatarURL: "x"}, Description: strPtr("d")}, false},
		{"different id", ModInfo{ID: 2, Name: "a", Submitter: Submitter{Name: "s"}, Description: strPtr("d")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
			assert.Equal(t, tt.want, tt.other.Equal(base))
		})
	}
}

func TestSubmissionsResponse_Decode(t *testing.T) {
	var feed SubmissionsResponse
	require.NoError(t, json.Unmarshal([]byte(`{"_aRecords":[{"_idRow":1,"_sName":"one"},{"_idRow":2,"_sName":"two"}]}`), &feed))
	assert.Equal(t, []SubmissionRecord{{Name: "one", ID: 1}, {Name: "two", ID: 2}}, feed.Records)
}

func TestStageError(t *testing.T) {
	cause := fmt.Errorf("%w: 7z exited with status 2", ErrExtraction)
	var err error = &StageError{Err: cause, Stage: StageExtracted}

	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, ErrExternalTool)
	assert.NotErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "Extracted")

	var se *StageError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &se))
	assert.Equal(t, StageExtracted, se.Stage)
}

func TestErrorKindsDistinct(t *testing.T) {
	kinds := []error{ErrResolution, ErrNetwork, ErrDecode, ErrIO, ErrNotFound, ErrExternalTool, ErrPrecondition}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
	assert.False(t, errors.Is(ErrExternalTool, ErrExtraction), "extraction is a narrower kind of tool failure")
}

func TestInstallRecord_JSON(t *testing.T) {
	rec := InstallRecord{ID: "abc", ModID: 5, Stage: StageBackedUp, Status: StatusFailed}
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"stage":"BackedUp"`)
	assert.NotContains(t, string(out), "archivePath", "empty optional paths are omitted")
}
