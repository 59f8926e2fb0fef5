package database

import (
	"github.com/aureuma/styleengine/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	portfolio    *models.PortfolioModel
	image        *models.ImageModel
	descriptor   *models.DescriptorModel
	styleProfile *models.StyleProfileModel
	prompt       *models.PromptModel
	generation   *models.GenerationModel
	bandit       *models.BanditModel
	rlhf         *models.RLHFModel
	feedback     *models.FeedbackModel
	coverage     *models.CoverageModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		portfolio:    models.NewPortfolio(db, logger),
		image:        models.NewImage(db, logger),
		descriptor:   models.NewDescriptor(db, logger),
		styleProfile: models.NewStyleProfile(db, logger),
		prompt:       models.NewPrompt(db, logger),
		generation:   models.NewGeneration(db, logger),
		bandit:       models.NewBandit(db, logger),
		rlhf:         models.NewRLHF(db, logger),
		feedback:     models.NewFeedback(db, logger),
		coverage:     models.NewCoverage(db, logger),
	}
}

// Portfolio returns the portfolio model repository.
func (r *Repository) Portfolio() *models.PortfolioModel {
	return r.portfolio
}

// Image returns the image model repository.
func (r *Repository) Image() *models.ImageModel {
	return r.image
}

// Descriptor returns the descriptor model repository.
func (r *Repository) Descriptor() *models.DescriptorModel {
	return r.descriptor
}

// StyleProfile returns the style profile model repository.
func (r *Repository) StyleProfile() *models.StyleProfileModel {
	return r.styleProfile
}

// Prompt returns the prompt spec model repository.
func (r *Repository) Prompt() *models.PromptModel {
	return r.prompt
}

// Generation returns the generation model repository.
func (r *Repository) Generation() *models.GenerationModel {
	return r.generation
}

// Bandit returns the bandit state model repository.
func (r *Repository) Bandit() *models.BanditModel {
	return r.bandit
}

// RLHF returns the RLHF token weight model repository.
func (r *Repository) RLHF() *models.RLHFModel {
	return r.rlhf
}

// Feedback returns the feedback event model repository.
func (r *Repository) Feedback() *models.FeedbackModel {
	return r.feedback
}

// Coverage returns the coverage report model repository.
func (r *Repository) Coverage() *models.CoverageModel {
	return r.coverage
}
