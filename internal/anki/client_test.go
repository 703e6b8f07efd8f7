package anki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawServer answers every request with the given status and body.
func rawServer(t *testing.T, status int, body string, requests *[]map[string]any) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			content, _ := io.ReadAll(r.Body)
			var request map[string]any
			require.NoError(t, json.Unmarshal(content, &request))
			*requests = append(*requests, request)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientEnvelope(t *testing.T) {
	var requests []map[string]any
	server := rawServer(t, http.StatusOK, `{"result": 6, "error": null}`, &requests)
	client := NewClient(WithURL(server.URL), WithKey("secret"))

	version, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, version)

	require.Len(t, requests, 1)
	assert.Equal(t, "version", requests[0]["action"])
	assert.EqualValues(t, 6, requests[0]["version"])
	assert.Equal(t, "secret", requests[0]["key"])
	assert.NotContains(t, requests[0], "params")
}

func TestClientResponseValidation(t *testing.T) {
	var tests = []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "Both result and error",
			status: http.StatusOK,
			body:   `{"result": 6, "error": "oops"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrBothResultAndError)
			},
		},
		{
			name:   "Neither result nor error",
			status: http.StatusOK,
			body:   `{"result": null, "error": null}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNeitherResultNorError)
			},
		},
		{
			name:   "Error",
			status: http.StatusOK,
			body:   `{"result": null, "error": "collection is not available"}`,
			check: func(t *testing.T, err error) {
				var protocolErr *ProtocolError
				require.ErrorAs(t, err, &protocolErr)
				assert.Equal(t, "version", protocolErr.Action)
				assert.Equal(t, "collection is not available", protocolErr.Message)
			},
		},
		{
			name:   "Unexpected status",
			status: http.StatusForbidden,
			body:   "forbidden",
			check: func(t *testing.T, err error) {
				var statusErr *HTTPStatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
				assert.Equal(t, "version: unexpected status 403: forbidden", statusErr.Error())
			},
		},
		{
			name:   "Invalid JSON",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "failed to decode response")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := rawServer(t, tt.status, tt.body, nil)
			client := NewClient(WithURL(server.URL), WithRetryPolicy(NoRetry()))
			_, err := client.Version(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClientVoidActions(t *testing.T) {
	server := rawServer(t, http.StatusOK, `{"result": null, "error": null}`, nil)
	client := NewClient(WithURL(server.URL))

	err := client.UpdateNote(context.Background(), 1, map[string]string{FieldText: "x"}, nil, nil)
	assert.NoError(t, err)
	err = client.DeleteNotes(context.Background(), []NoteID{1})
	assert.NoError(t, err)
}

func TestClientRetriesTransportErrors(t *testing.T) {
	server := rawServer(t, http.StatusOK, `{"result": 6, "error": null}`, nil)
	url := server.URL
	server.Close()

	client := NewClient(WithURL(url), WithRetryPolicy(RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Multiplier: 2,
	}))
	_, err := client.Version(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsTransport(err))
}

func TestClientProtocolErrorsAreNotRetried(t *testing.T) {
	var requests []map[string]any
	server := rawServer(t, http.StatusOK, `{"result": null, "error": "boom"}`, &requests)
	client := NewClient(WithURL(server.URL))

	_, err := client.Version(context.Background())
	require.Error(t, err)
	assert.Len(t, requests, 1)
}

func TestClientActions(t *testing.T) {
	ctx := context.Background()

	t.Run("AddNote", func(t *testing.T) {
		fake := NewFakeAnki(t)
		client := fake.Client()

		note := NewClozeNote("Go", "", "{{c1::Gophers}} are cute", []string{"golang"}, nil)
		id, err := client.AddNote(ctx, note)
		require.NoError(t, err)
		assert.Equal(t, FirstFakeNoteID, id)

		stored, ok := fake.Note(id)
		require.True(t, ok)
		assert.Equal(t, "Cloze", stored.ModelName)
		assert.Equal(t, "", stored.Fields[FieldBackExtra])
		assert.Equal(t, []string{"golang"}, stored.Tags)
	})

	t.Run("AddNote reuses duplicates", func(t *testing.T) {
		fake := NewFakeAnki(t)
		client := fake.Client()
		existing := fake.Seed("Go", `{{c1::a:b}} "c" d_e`)

		note := NewClozeNote("Go", ModelCloze, `{{c1::a:b}} "c" d_e`, []string{"other"}, nil)
		id, err := client.AddNote(ctx, note)
		require.NoError(t, err)
		assert.Equal(t, existing, id)
		assert.Equal(t, []string{"addNote", "findNotes"}, fake.Actions())
	})

	t.Run("UpdateNote", func(t *testing.T) {
		fake := NewFakeAnki(t)
		client := fake.Client()
		id := fake.Seed("Go", "{{c1::old}}")

		picture := NewPicture("/tmp/gopher.jpg", "")
		err := client.UpdateNote(ctx, id, map[string]string{FieldText: "{{c1::new}}", FieldBackExtra: ""}, []string{"t"}, []Picture{picture})
		require.NoError(t, err)

		stored, _ := fake.Note(id)
		assert.Equal(t, "{{c1::new}}", stored.Fields[FieldText])
		assert.Equal(t, []string{"t"}, stored.Tags)
		assert.Equal(t, []Picture{{Path: "/tmp/gopher.jpg", Filename: "gopher.jpg", Fields: []string{"Back Extra"}}}, stored.Picture)
		assert.Equal(t, `<img src="gopher.jpg">`, stored.Fields[FieldBackExtra])
	})

	t.Run("UpdateNote missing", func(t *testing.T) {
		fake := NewFakeAnki(t)
		err := fake.Client().UpdateNote(ctx, 12, map[string]string{FieldText: "x"}, nil, nil)
		var protocolErr *ProtocolError
		assert.ErrorAs(t, err, &protocolErr)
	})

	t.Run("FindNotesInfo", func(t *testing.T) {
		fake := NewFakeAnki(t)
		client := fake.Client()
		a := fake.Seed("Go", "a")
		fake.Seed("Go::Sub", "b")
		c := fake.Seed("Rust", "c")
		fake.Seed("Java", "d")

		infos, err := client.FindNotesInfo(ctx, DecksQuery("", "Go", "Rust"))
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, a, infos[0].NoteID)
		assert.Equal(t, map[string]string{"Text": "a", "Back Extra": ""}, infos[0].FieldValues())
		assert.Equal(t, c, infos[1].NoteID)
	})

	t.Run("DeleteNotes", func(t *testing.T) {
		fake := NewFakeAnki(t)
		client := fake.Client()
		a := fake.Seed("Go", "a")
		b := fake.Seed("Go", "b")

		require.NoError(t, client.DeleteNotes(ctx, []NoteID{a}))
		assert.Equal(t, []NoteID{b}, fake.NoteIDs())

		// Nothing to delete
		require.NoError(t, client.DeleteNotes(ctx, nil))
		assert.Equal(t, 1, fake.CountActions("deleteNotes"))
	})

	t.Run("CreateDeck", func(t *testing.T) {
		fake := NewFakeAnki(t)
		client := fake.Client()
		id, err := client.CreateDeck(ctx, "Go")
		require.NoError(t, err)
		assert.EqualValues(t, 1, id)
		assert.Equal(t, []string{"Go"}, fake.Decks())
	})
}

func TestQueries(t *testing.T) {
	note := NewClozeNote("My Deck", "", `C:\dir "x" *y*`, nil, nil)
	assert.Equal(t, `"deck:My Deck" "note:Cloze" "Text:C\:\\dir \"x\" \*y\*"`, note.DuplicateQuery())

	assert.Equal(t, `"note:Cloze"`, DecksQuery(""))
	assert.Equal(t, `"note:Cloze" ("deck:Go" -"deck:Go::*")`, DecksQuery("", "Go"))
	assert.Equal(t,
		`"note:Basic" (("deck:A" -"deck:A::*") OR ("deck:B\_C" -"deck:B\_C::*"))`,
		DecksQuery("Basic", "A", "B_C"))
}
