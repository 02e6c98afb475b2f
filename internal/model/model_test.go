package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessTokenValidAt(t *testing.T) {
	token := &AccessToken{ExpiresAt: 1_700_000_000}

	assert.True(t, token.ValidAt(time.Unix(1_699_999_999, 0)))
	assert.True(t, token.ValidAt(time.Unix(1_699_999_999, 900_000_000)))
	assert.False(t, token.ValidAt(time.Unix(1_700_000_000, 0)))
	assert.False(t, token.ValidAt(time.Unix(1_700_000_100, 0)))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("egg"))
	assert.Equal(t, 2, EstimateTokens("oatmeal!"))
	assert.Equal(t, 3, EstimateTokens("борщ и хлеб"))
}

func TestMealTextAccessors(t *testing.T) {
	var meal Meal
	assert.Equal(t, "", meal.NotesText())
	assert.Equal(t, "", meal.TypeText())

	notes, kind := "two eggs", "breakfast"
	meal.Notes, meal.Type = &notes, &kind
	assert.Equal(t, "two eggs", meal.NotesText())
	assert.Equal(t, "breakfast", meal.TypeText())
}
