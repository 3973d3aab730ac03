package marketplace

import "github.com/sudo-init-do/carhub/internal/models"

// MaxCommentLength caps a rating comment, in characters.
const MaxCommentLength = 1000

// RateRequest represents the request payload for rating a transaction
type RateRequest struct {
	models.Scores
	Comment string `json:"comment"`
}

// RateResponse is returned after a rating is stored
type RateResponse struct {
	Rating  models.Rating `json:"rating"`
	Message string        `json:"message"`
}
