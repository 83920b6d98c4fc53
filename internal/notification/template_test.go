package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*TemplateEngine, *memTemplateStore) {
	t.Helper()
	store := newMemTemplateStore()
	return NewTemplateEngine(store, zap.NewNop()), store
}

func TestGenerateNotificationInterpolation(t *testing.T) {
	engine, _ := newTestEngine(t)

	n := engine.GenerateNotification(TypeGrade, map[string]string{
		"studentName": "Budi",
		"score":       "85",
		"maxScore":    "100",
		"subject":     "Mathematics",
	}, "")

	require.NotNil(t, n)
	assert.Equal(t, TypeGrade, n.Type)
	assert.Equal(t, "Grade Updated", n.Title)
	assert.Equal(t, "Budi received 85/100 in Mathematics", n.Body)
	assert.Equal(t, PriorityNormal, n.Priority)
	assert.NotEmpty(t, n.ID)
}

func TestGenerateNotificationUnknownType(t *testing.T) {
	engine, _ := newTestEngine(t)

	n := engine.GenerateNotification(Type("unknown"), map[string]string{}, "")
	assert.Nil(t, n)
}

func TestGenerateNotificationMissingVariablePreserved(t *testing.T) {
	engine, _ := newTestEngine(t)

	n := engine.GenerateNotification(TypeGrade, map[string]string{
		"studentName": "Budi",
		"score":       "85",
		"maxScore":    "100",
	}, "")

	require.NotNil(t, n)
	assert.Contains(t, n.Body, "{subject}")
}

func TestGenerateNotificationRoleTargeting(t *testing.T) {
	engine, _ := newTestEngine(t)
	data := map[string]string{
		"studentName": "Budi", "score": "85", "maxScore": "100", "subject": "Math",
	}

	tests := []struct {
		name string
		role string
		want bool
	}{
		{name: "targeted role", role: "parent", want: true},
		{name: "other targeted role", role: "student", want: true},
		{name: "untargeted role", role: "teacher", want: false},
		{name: "no role given", role: "", want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := engine.GenerateNotification(TypeGrade, data, tc.role)
			if tc.want {
				assert.NotNil(t, n)
			} else {
				assert.Nil(t, n)
			}
		})
	}
}

func TestGenerateNotificationDoubleBracePlaceholders(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SaveTemplate(ctx, Template{
		Type:          TypeSystem,
		TitleTemplate: "Notice for {{name}}",
		BodyTemplate:  "{{message}}",
	}))
	assert.Len(t, store.templates, 1)

	n := engine.GenerateNotification(TypeSystem, map[string]string{
		"name":    "Everyone",
		"message": "Server maintenance tonight",
	}, "")
	require.NotNil(t, n)
	assert.Equal(t, "Notice for Everyone", n.Title)
	assert.Equal(t, "Server maintenance tonight", n.Body)
}

func TestSaveTemplateValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	err := engine.SaveTemplate(ctx, Template{Type: TypeSystem, TitleTemplate: "t"})
	require.Error(t, err)

	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, KindValidation, nerr.Kind)
}

func TestDeleteTemplateRestoresBuiltin(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	custom := Template{
		ID:            "custom-grade",
		Type:          TypeGrade,
		TitleTemplate: "Custom",
		BodyTemplate:  "Custom body",
	}
	require.NoError(t, engine.SaveTemplate(ctx, custom))

	n := engine.GenerateNotification(TypeGrade, nil, "")
	require.NotNil(t, n)
	assert.Equal(t, "Custom", n.Title)

	require.NoError(t, engine.DeleteTemplate(ctx, "custom-grade"))

	n = engine.GenerateNotification(TypeGrade, map[string]string{
		"studentName": "Budi", "score": "85", "maxScore": "100", "subject": "Math",
	}, "")
	require.NotNil(t, n)
	assert.Equal(t, "Grade Updated", n.Title)
}

func TestDeleteBuiltinTemplateRejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	err := engine.DeleteTemplate(context.Background(), "builtin-grade")
	require.Error(t, err)
}

func TestLoadOverridesBuiltin(t *testing.T) {
	store := newMemTemplateStore()
	require.NoError(t, store.Put(context.Background(), Template{
		ID:            "stored-system",
		Type:          TypeSystem,
		TitleTemplate: "Stored",
		BodyTemplate:  "Stored body",
	}))
	engine := NewTemplateEngine(store, zap.NewNop())

	require.NoError(t, engine.Load(context.Background()))

	n := engine.GenerateNotification(TypeSystem, nil, "")
	require.NotNil(t, n)
	assert.Equal(t, "Stored", n.Title)
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := NewID(TypeGrade)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
