package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestValidator_CompilesAllCatalogEntries(t *testing.T) {
	t.Parallel()
	newValidator(t)
}

func TestValidate_TextToImage_Valid(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	issues, err := v.Validate("text_to_image", map[string]any{"prompt": "a red cube"})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_TextToImage_MissingPrompt(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	issues, err := v.Validate("text_to_image", map[string]any{})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Equal(t, "required", issues[0].Code)
}

func TestValidate_TextToImage_RejectsUnknownField(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	issues, err := v.Validate("text_to_image", map[string]any{"prompt": "x", "bogus": 1})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestValidate_TextToImage_WidthBoundaries(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	valid := map[string]any{"prompt": "x", "width": float64(64)}
	issues, err := v.Validate("text_to_image", valid)
	require.NoError(t, err)
	assert.Empty(t, issues)

	tooSmall := map[string]any{"prompt": "x", "width": float64(63)}
	issues, err = v.Validate("text_to_image", tooSmall)
	require.NoError(t, err)
	assert.NotEmpty(t, issues)

	validMax := map[string]any{"prompt": "x", "width": float64(4096)}
	issues, err = v.Validate("text_to_image", validMax)
	require.NoError(t, err)
	assert.Empty(t, issues)

	tooBig := map[string]any{"prompt": "x", "width": float64(4097)}
	issues, err = v.Validate("text_to_image", tooBig)
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}

func TestValidate_Chat_EmptyMessagesRejected(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	issues, err := v.Validate("chat", map[string]any{"messages": []any{}})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Equal(t, "messages", issues[0].Path)
}

func TestValidate_Chat_TemperatureBoundaries(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	msgs := []any{map[string]any{"role": "user", "content": "hi"}}

	ok := map[string]any{"messages": msgs, "temperature": float64(0)}
	issues, err := v.Validate("chat", ok)
	require.NoError(t, err)
	assert.Empty(t, issues)

	ok2 := map[string]any{"messages": msgs, "temperature": float64(2)}
	issues, err = v.Validate("chat", ok2)
	require.NoError(t, err)
	assert.Empty(t, issues)

	bad := map[string]any{"messages": msgs, "temperature": -0.001}
	issues, err = v.Validate("chat", bad)
	require.NoError(t, err)
	assert.NotEmpty(t, issues)

	bad2 := map[string]any{"messages": msgs, "temperature": 2.001}
	issues, err = v.Validate("chat", bad2)
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}

func TestValidate_StoreVectorDB_OverlapBoundary(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	rejected := map[string]any{
		"file": "data", "collection_name": "c",
		"chunk_size": float64(10), "overlap": float64(10),
	}
	issues, err := v.Validate("store_vector_db", rejected)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Equal(t, "overlap", issues[0].Path)

	accepted := map[string]any{
		"file": "data", "collection_name": "c",
		"chunk_size": float64(10), "overlap": float64(9),
	}
	issues, err = v.Validate("store_vector_db", accepted)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_UnknownOperation(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	_, err := v.Validate("does_not_exist", map[string]any{})
	assert.Error(t, err)
}

func TestValidate_Pricing_NoArgumentsRequired(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	issues, err := v.Validate("pricing", map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_TaskStatus_RequiresUUIDShapedID(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	issues, err := v.Validate("task_status", map[string]any{"task_id": "11111111-1111-1111-1111-111111111111"})
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = v.Validate("task_status", map[string]any{"task_id": "not-a-uuid"})
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}
