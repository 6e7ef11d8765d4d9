package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Title    string  `json:"title" description:"Event title"`
	Priority string  `json:"priority,omitempty" enum:"low,normal,medium,high"`
	Days     *int    `json:"days"`
	Score    float64 `json:"score,omitempty"`
	internal string
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"title"}, schema["required"])

	props := schema["properties"].(map[string]any)
	require.Len(t, props, 4)

	title := props["title"].(map[string]any)
	assert.Equal(t, "string", title["type"])
	assert.Equal(t, "Event title", title["description"])

	prio := props["priority"].(map[string]any)
	assert.Equal(t, []string{"low", "normal", "medium", "high"}, prio["enum"])

	assert.Equal(t, "integer", props["days"].(map[string]any)["type"])
	assert.Equal(t, "number", props["score"].(map[string]any)["type"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	schema := CreateSchema(42)
	assert.Equal(t, map[string]any{}, schema["properties"])
	assert.NotContains(t, schema, "required")
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(&sampleArgs{})

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{"title": "x", "priority": "high", "days": float64(3)}, schema))
	})

	t.Run("missing required", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"priority": "high"}, schema)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "title", ve.Field)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"title": 12.0}, schema)
		assert.ErrorContains(t, err, "expected type string")
	})

	t.Run("non integer", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"title": "x", "days": 1.5}, schema)
		assert.Error(t, err)
	})

	t.Run("enum violation", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"title": "x", "priority": "urgent"}, schema)
		assert.ErrorContains(t, err, "must be one of low, normal, medium, high")
	})

	t.Run("json decoded schema", func(t *testing.T) {
		decoded := map[string]any{
			"type":     "object",
			"required": []any{"title"},
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
			},
		}
		assert.Error(t, ValidateParameters(map[string]any{}, decoded))
	})
}

func TestRenderTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("t", `{{upper .Name}} {{fixed 1 .Value}} {{join .Items ", "}} {{default "none" .Empty}}`)
	require.NoError(t, err)

	out, err := RenderTemplate(tmpl, map[string]any{
		"Name":  "crop",
		"Value": 22.46,
		"Items": []string{"a", "b"},
		"Empty": "",
	})
	require.NoError(t, err)
	assert.Equal(t, "CROP 22.5 a, b none", out)
}

func TestRenderTemplate_NoEscaping(t *testing.T) {
	tmpl, err := ParseTemplate("t", `{{.}}`)
	require.NoError(t, err)

	out, err := RenderTemplate(tmpl, "soil < 35% & 'dry'")
	require.NoError(t, err)
	assert.Equal(t, "soil < 35% & 'dry'", out)
}

func TestKeyedMutex(t *testing.T) {
	km := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("u1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_DistinctKeys(t *testing.T) {
	km := NewKeyedMutex()
	unlockA := km.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct key blocked")
	}
	unlockA()
}
