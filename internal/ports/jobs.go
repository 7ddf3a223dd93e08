package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// JobRepository stocke les jobs de préchargement. Toutes les mises à jour renvoient
// le job relu; ErrNotFound signale un id inconnu ou un état attendu qui ne correspond plus.
type JobRepository interface {
	Create(ctx context.Context, job domain.Job) (domain.Job, error)
	Get(ctx context.Context, id string) (domain.Job, error)
	// List trie du plus récemment modifié au plus ancien.
	List(ctx context.Context, limit int) ([]domain.Job, error)
	// ClaimNextQueued passe le plus vieux job "queued" à "running" et le renvoie.
	// ErrNotFound s'il n'y a rien à exécuter.
	ClaimNextQueued(ctx context.Context) (domain.Job, error)
	UpdateProgress(ctx context.Context, id string, progress float64) (domain.Job, error)
	UpdateResult(ctx context.Context, id string, resultJSON []byte) (domain.Job, error)
	UpdateError(ctx context.Context, id string, code string, message string) (domain.Job, error)
	// UpdateState échoue avec domain.ErrInvalidTransition si expected -> next est interdit.
	UpdateState(ctx context.Context, id string, expected domain.JobState, next domain.JobState) (domain.Job, error)
}
