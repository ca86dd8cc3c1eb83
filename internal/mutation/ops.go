package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/objectstore"
	"github.com/dmitrijs2005/memojournal/internal/upload"
	"github.com/google/uuid"
)

// ProgressFunc observes the image uploads of a create.
type ProgressFunc func(task models.UploadTask, overall int)

// Create shows a provisional record at once, uploads files, then creates the
// record remotely and swaps the provisional entry for the durable one. Any
// failure removes the provisional entry again. Images that were uploaded
// before a failure stay in the object store.
func (c *Coordinator) Create(ctx context.Context, userID string, d models.Draft, files []upload.Source, onProgress ProgressFunc) (models.Record, error) {
	if err := d.Validate(); err != nil {
		return models.Record{}, err
	}
	if len(files) > 0 && c.deps.Uploads == nil {
		return models.Record{}, fmt.Errorf("%w: image uploads are not configured", common.ErrValidation)
	}

	// Only the uploads observe cancellation.
	uploadCtx := ctx
	ctx = context.WithoutCancel(ctx)

	now := c.deps.Clock()
	prov := models.ProvisionalRecord{
		Record: models.Record{
			ID:        models.NewProvisionalID(now),
			UserID:    userID,
			Title:     d.Title,
			Date:      d.Date,
			Text:      d.Text,
			Location:  d.Location,
			Images:    []models.Image{},
			Tags:      nonNil(d.Tags),
			CreatedAt: now,
		}.Derive(now),
		IdempotencyKey: uuid.NewString(),
	}

	_ = c.edit(ctx, userID, func(st *userState, list []models.Memory) ([]models.Memory, error) {
		st.pending[prov.ID] = prov
		return append([]models.Memory{prov}, without(list, prov.ID)...), nil
	})
	c.deps.Status.StartSync()
	c.deps.Status.ReportSuccess()

	fail := func(err error) (models.Record, error) {
		_ = c.edit(ctx, userID, func(st *userState, list []models.Memory) ([]models.Memory, error) {
			delete(st.pending, prov.ID)
			return without(list, prov.ID), nil
		})
		c.deps.Status.ReportFailure(err.Error())
		c.deps.Logger.Warn(ctx, "create failed, provisional record removed", "user_id", userID, "id", prov.ID, "error", err)
		return models.Record{}, err
	}

	images := []models.Image{}
	if len(files) > 0 {
		opts := upload.BatchOptions{Folder: c.imageFolder(userID), Tags: d.Tags}
		if onProgress != nil {
			opts.OnChange = onProgress
		}
		uploaded, err := c.deps.Uploads.Start(uploadCtx, files, opts).Wait()
		if err != nil {
			return fail(fmt.Errorf("upload images: %w", err))
		}
		images = uploaded
	}

	payload := models.CreatePayload{
		Title:          d.Title,
		Date:           d.Date,
		Text:           d.Text,
		Location:       d.Location,
		Images:         images,
		Tags:           nonNil(d.Tags),
		IdempotencyKey: prov.IdempotencyKey,
	}
	rec, err := c.deps.Remote.Create(ctx, userID, payload)
	if err != nil {
		return fail(fmt.Errorf("create memory: %w", err))
	}
	rec = rec.Derive(c.deps.Clock())

	_ = c.edit(ctx, userID, func(st *userState, list []models.Memory) ([]models.Memory, error) {
		delete(st.pending, prov.ID)
		list = without(list, prov.ID)
		list = without(list, rec.ID)
		return append(list, rec), nil
	})
	c.deps.Status.ReportSuccess()
	c.publish(ctx, userID)

	c.deps.Logger.Info(ctx, "memory created", "user_id", userID, "id", rec.ID, "images", len(rec.Images))
	return rec, nil
}

// Update patches a durable record locally, then remotely. A remote failure
// restores the record as it was.
func (c *Coordinator) Update(ctx context.Context, userID, id string, patch models.Patch) (models.Record, error) {
	if models.IsProvisionalID(id) {
		return models.Record{}, fmt.Errorf("%w: memory %s is still being created", common.ErrValidation, id)
	}
	if err := patch.Validate(); err != nil {
		return models.Record{}, err
	}
	ctx = context.WithoutCancel(ctx)

	var before models.Memory
	var after models.Record
	err := c.edit(ctx, userID, func(_ *userState, list []models.Memory) ([]models.Memory, error) {
		i := indexOf(list, id)
		if i < 0 {
			return nil, notFound(id)
		}
		before = list[i]
		after = patch.Apply(before.Base(), c.deps.Clock())
		list[i] = after
		return list, nil
	})
	if err != nil {
		return models.Record{}, err
	}

	c.deps.Status.StartSync()
	if err := c.deps.Remote.Update(ctx, id, patch); err != nil {
		err = fmt.Errorf("update memory: %w", err)
		_ = c.edit(ctx, userID, func(_ *userState, list []models.Memory) ([]models.Memory, error) {
			if i := indexOf(list, id); i >= 0 {
				list[i] = before
				return list, nil
			}
			return append(list, before), nil
		})
		c.deps.Status.ReportFailure(err.Error())
		c.deps.Logger.Warn(ctx, "update failed, record restored", "user_id", userID, "id", id, "error", err)
		return models.Record{}, err
	}

	c.deps.Status.ReportSuccess()
	c.clearPersisted(ctx, userID)
	c.publish(ctx, userID)
	return after, nil
}

// Delete removes a durable record locally, then remotely. A remote failure
// puts the record back; success also removes its images, best effort.
func (c *Coordinator) Delete(ctx context.Context, userID, id string) error {
	if models.IsProvisionalID(id) {
		return fmt.Errorf("%w: memory %s is still being created", common.ErrValidation, id)
	}
	ctx = context.WithoutCancel(ctx)

	var removed models.Memory
	err := c.edit(ctx, userID, func(st *userState, list []models.Memory) ([]models.Memory, error) {
		i := indexOf(list, id)
		if i < 0 {
			return nil, notFound(id)
		}
		removed = list[i]
		st.deleting[id] = removed
		return without(list, id), nil
	})
	if err != nil {
		return err
	}

	c.deps.Status.StartSync()
	remoteErr := c.deps.Remote.Delete(ctx, id)

	_ = c.edit(ctx, userID, func(st *userState, list []models.Memory) ([]models.Memory, error) {
		delete(st.deleting, id)
		if remoteErr != nil && indexOf(list, id) < 0 {
			list = append(list, removed)
		}
		return list, nil
	})

	if remoteErr != nil {
		err := fmt.Errorf("delete memory: %w", remoteErr)
		c.deps.Status.ReportFailure(err.Error())
		c.deps.Logger.Warn(ctx, "delete failed, record restored", "user_id", userID, "id", id, "error", err)
		return err
	}

	c.deps.Status.ReportSuccess()
	c.clearPersisted(ctx, userID)
	c.publish(ctx, userID)
	c.deleteImages(ctx, removed.Base().Images)
	return nil
}

func (c *Coordinator) deleteImages(ctx context.Context, images []models.Image) {
	if c.deps.Images == nil {
		return
	}
	for _, img := range images {
		res, err := c.deps.Images.Delete(ctx, img.PublicID)
		switch {
		case err != nil:
			c.deps.Logger.Warn(ctx, "image delete failed", "public_id", img.PublicID, "error", err)
		case res == objectstore.DeleteNotFound:
			c.deps.Logger.Info(ctx, "image already gone", "public_id", img.PublicID)
		}
	}
}

// IsCancelled reports whether a Create ended because its uploads were aborted.
func IsCancelled(err error) bool {
	return errors.Is(err, common.ErrCancelled)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
