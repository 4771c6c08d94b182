package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agora/internal/models"
	"agora/internal/utils"

	"gorm.io/gorm"
)

type VoteOutcome string

const (
	VoteCreated  VoteOutcome = "created"
	VoteCleared  VoteOutcome = "cleared"
	VoteSwitched VoteOutcome = "switched"
)

type VoteCounts struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
	Score     int64 `json:"score"`
}

func newVoteCounts(up, down int64) VoteCounts {
	return VoteCounts{Upvotes: up, Downvotes: down, Score: up - down}
}

type VoteResult struct {
	Outcome VoteOutcome  `json:"result"`
	Vote    *models.Vote `json:"vote,omitempty"` // nil once cleared
	Counts  VoteCounts   `json:"counts"`
}

// VoteFilter narrows ListVotes. Zero value lists every vote on the target.
type VoteFilter struct {
	Upvote *bool
	UserID string
}

// VoteService is the vote ledger. It keeps at most one vote row per
// (user, target id, target type): every check-then-write runs inside one
// transaction while the per-key lock is held.
type VoteService struct {
	db     *gorm.DB
	locker Locker
	cache  *utils.Cache
}

func NewVoteService(db *gorm.DB, locker Locker, cache *utils.Cache) *VoteService {
	return &VoteService{db: db, locker: locker, cache: cache}
}

func voteKey(userID, targetID string, targetType models.TargetType) string {
	return fmt.Sprintf("vote:%s:%s:%s", userID, targetType, targetID)
}

// CastVote applies the caller's desired direction to the target: no vote
// yet creates one, the same direction again clears it, the opposite
// direction switches it.
func (s *VoteService) CastVote(ctx context.Context, callerID, targetID string, targetType models.TargetType, upvote bool) (*VoteResult, error) {
	if err := validateTarget(targetID, targetType); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, validation("caller id is required")
	}

	unlock, err := s.locker.Lock(ctx, voteKey(callerID, targetID, targetType))
	if err != nil {
		return nil, fmt.Errorf("acquire vote lock: %w", err)
	}
	defer unlock()

	var result VoteResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := targetExists(tx, targetID, targetType); err != nil {
			return err
		}

		var existing models.Vote
		err := tx.Where("user_id = ? AND kategori_id = ? AND kategori_type = ?", callerID, targetID, targetType).
			Take(&existing).Error
		direction := upvote

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{
				UserID:     callerID,
				TargetID:   targetID,
				TargetType: targetType,
				VoteType:   &direction,
			}
			if err := tx.Create(&vote).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return conflict("a concurrent vote on this target won the race")
				}
				return fmt.Errorf("create vote: %w", err)
			}
			result = VoteResult{Outcome: VoteCreated, Vote: &vote}

		case err != nil:
			return fmt.Errorf("find vote: %w", err)

		case existing.VoteType == nil:
			// A row without a direction counts as no vote.
			if err := tx.Model(&existing).Update("vote_type", direction).Error; err != nil {
				return fmt.Errorf("update vote: %w", err)
			}
			existing.VoteType = &direction
			result = VoteResult{Outcome: VoteCreated, Vote: &existing}

		case *existing.VoteType == direction:
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("delete vote: %w", err)
			}
			result = VoteResult{Outcome: VoteCleared}

		default:
			if err := tx.Model(&existing).Update("vote_type", direction).Error; err != nil {
				return fmt.Errorf("update vote: %w", err)
			}
			existing.VoteType = &direction
			result = VoteResult{Outcome: VoteSwitched, Vote: &existing}
		}

		counts, err := countVotes(tx, targetID, targetType)
		if err != nil {
			return err
		}
		result.Counts = counts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(targetType)
	return &result, nil
}

// CancelVote deletes a vote by id. Only the vote's owner or an admin may do
// so. A vote that is already gone is NotFound.
func (s *VoteService) CancelVote(ctx context.Context, callerID, voteID string) (*models.Vote, error) {
	if voteID == "" {
		return nil, validation("vote id is required")
	}
	db := s.db.WithContext(ctx)

	var vote models.Vote
	if err := db.Take(&vote, "id = ?", voteID).Error; err != nil {
		return nil, storeError("vote", err)
	}
	if vote.UserID != callerID {
		var caller models.User
		if err := db.Take(&caller, "id = ?", callerID).Error; err != nil || !caller.IsAdmin() {
			return nil, forbidden("vote belongs to another user")
		}
	}

	unlock, err := s.locker.Lock(ctx, voteKey(vote.UserID, vote.TargetID, vote.TargetType))
	if err != nil {
		return nil, fmt.Errorf("acquire vote lock: %w", err)
	}
	defer unlock()

	res := db.Delete(&models.Vote{}, "id = ?", voteID)
	if res.Error != nil {
		return nil, fmt.Errorf("delete vote: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("vote not found")
	}

	s.invalidate(vote.TargetType)
	return &vote, nil
}

// CountVotes aggregates the target's current rows. Nothing is cached.
func (s *VoteService) CountVotes(ctx context.Context, targetID string, targetType models.TargetType) (VoteCounts, error) {
	if err := validateTarget(targetID, targetType); err != nil {
		return VoteCounts{}, err
	}
	db := s.db.WithContext(ctx)
	if err := targetExists(db, targetID, targetType); err != nil {
		return VoteCounts{}, err
	}
	return countVotes(db, targetID, targetType)
}

// ListVotes returns the target's votes in no particular order.
func (s *VoteService) ListVotes(ctx context.Context, targetID string, targetType models.TargetType, filter VoteFilter) ([]models.Vote, error) {
	if err := validateTarget(targetID, targetType); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).
		Where("kategori_id = ? AND kategori_type = ?", targetID, targetType)
	if filter.Upvote != nil {
		query = query.Where("vote_type = ?", *filter.Upvote)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	votes := make([]models.Vote, 0)
	if err := query.Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

func (s *VoteService) invalidate(targetType models.TargetType) {
	if s.cache != nil && targetType == models.TargetPost {
		s.cache.Invalidate(popularCachePrefix)
	}
}

func validateTarget(targetID string, targetType models.TargetType) error {
	if strings.TrimSpace(targetID) == "" {
		return validation("vote target is required")
	}
	if !targetType.Valid() {
		return validation("target type must be POST or COMMENT")
	}
	return nil
}

func targetExists(db *gorm.DB, targetID string, targetType models.TargetType) error {
	var model any = &models.Post{}
	entity := "post"
	if targetType == models.TargetComment {
		model = &models.Comment{}
		entity = "comment"
	}
	var count int64
	if err := db.Model(model).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return fmt.Errorf("look up %s: %w", entity, err)
	}
	if count == 0 {
		return notFound("%s not found", entity)
	}
	return nil
}

func countVotes(db *gorm.DB, targetID string, targetType models.TargetType) (VoteCounts, error) {
	var up, down int64
	if err := db.Model(&models.Vote{}).
		Where("kategori_id = ? AND kategori_type = ? AND vote_type = ?", targetID, targetType, true).
		Count(&up).Error; err != nil {
		return VoteCounts{}, fmt.Errorf("count upvotes: %w", err)
	}
	if err := db.Model(&models.Vote{}).
		Where("kategori_id = ? AND kategori_type = ? AND vote_type = ?", targetID, targetType, false).
		Count(&down).Error; err != nil {
		return VoteCounts{}, fmt.Errorf("count downvotes: %w", err)
	}
	return newVoteCounts(up, down), nil
}

// countVotesBatch tallies many targets of one type in a single grouped query.
func countVotesBatch(db *gorm.DB, targetIDs []string, targetType models.TargetType) (map[string]VoteCounts, error) {
	counts := make(map[string]VoteCounts, len(targetIDs))
	if len(targetIDs) == 0 {
		return counts, nil
	}

	type tally struct {
		TargetID string
		VoteType bool
		Count    int64
	}
	var rows []tally
	err := db.Model(&models.Vote{}).
		Select("kategori_id AS target_id, vote_type, COUNT(*) AS count").
		Where("kategori_type = ? AND kategori_id IN ? AND vote_type IS NOT NULL", targetType, targetIDs).
		Group("kategori_id, vote_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}

	for _, row := range rows {
		c := counts[row.TargetID]
		if row.VoteType {
			c.Upvotes += row.Count
		} else {
			c.Downvotes += row.Count
		}
		c.Score = c.Upvotes - c.Downvotes
		counts[row.TargetID] = c
	}
	return counts, nil
}
