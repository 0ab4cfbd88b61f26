package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/internal/telemetry"
	"github.com/vingest/vingest/pkg/session"
)

// assemble concatenates the staged chunks into the published file and
// retires the session. It runs on the replica elected by ApplyChunk.
//
// The final file only becomes visible through an atomic publish in the
// chunk store, so a crash mid-assembly leaves no partial artifact. On
// failure the session is marked failed and staging is kept so the upload
// can be inspected or repaired.
func (c *Coordinator) assemble(ctx context.Context, sess *session.Session) (err error) {
	ctx, span := telemetry.StartUploadSpan(ctx, "assemble", sess.FileID,
		telemetry.FileName(sess.FileName),
		telemetry.TotalChunks(sess.TotalChunks),
		telemetry.TotalSize(sess.TotalSize))
	defer span.End()

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveAssembly(sess.TotalSize, time.Since(start), err)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	logger.InfoCtx(ctx, "Assembling upload",
		logger.FileID(sess.FileID),
		logger.FileName(sess.FileName),
		"total_chunks", sess.TotalChunks)

	finalPath, written, err := c.chunks.Assemble(ctx, sess.FileID, sess.FileName, sess.TotalChunks)
	if err != nil {
		logger.ErrorCtx(ctx, "Assembly failed",
			logger.FileID(sess.FileID),
			logger.Err(err))
		if ferr := c.sessions.Fail(ctx, sess.FileID); ferr != nil {
			logger.WarnCtx(ctx, "Failed to mark session failed",
				logger.FileID(sess.FileID),
				logger.Err(ferr))
		}
		if c.metrics != nil {
			c.metrics.RecordSessionStatus(string(session.StatusFailed))
		}
		return fmt.Errorf("failed to assemble %s: %w", sess.FileID, err)
	}

	if c.catalog != nil {
		if cerr := c.catalog.UpsertFinal(ctx, sess.FileID, written, finalPath); cerr != nil {
			logger.WarnCtx(ctx, "Failed to record final file in catalog",
				logger.FileID(sess.FileID),
				logger.Path(finalPath),
				logger.Err(cerr))
		}
	}

	c.index.IndexComplete(ctx, sess.FileID, c.cfg.UploadDir, sess.FileName, written, sess.TotalChunks)

	if rerr := c.chunks.RemoveStaging(ctx, sess.FileID); rerr != nil {
		logger.WarnCtx(ctx, "Failed to remove staging after assembly",
			logger.FileID(sess.FileID),
			logger.Err(rerr))
	}
	if derr := c.sessions.Delete(ctx, sess.FileID); derr != nil {
		logger.WarnCtx(ctx, "Failed to delete session after assembly",
			logger.FileID(sess.FileID),
			logger.Err(derr))
	}

	if c.metrics != nil {
		c.metrics.RecordSessionStatus(string(session.StatusCompleted))
	}
	logger.InfoCtx(ctx, "Upload completed",
		logger.FileID(sess.FileID),
		logger.Path(finalPath),
		logger.Size(written),
		logger.DurationMs(logger.Duration(start)))

	return nil
}
