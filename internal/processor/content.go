package processor

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/entity"
)

// DocumentText returns the document and its text: the latest version when one
// exists, otherwise a fresh fetch and extract that is not persisted.
func (p *Processor) DocumentText(ctx context.Context, id string) (*entity.Document, string, error) {
	if err := common.ValidateDocumentID(id); err != nil {
		return nil, "", err
	}
	doc, err := p.store.Documents.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	v, err := p.store.Versions.Latest(ctx, id)
	switch {
	case err == nil:
		return doc, v.Content, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, "", err
	}

	if doc.ContentRef == "" {
		return nil, "", common.NewValidationError(MsgMissingContentRef, nil)
	}
	fetchCtx, cancel := common.WithOptionalTimeout(ctx, p.cfg.FetchTimeout)
	data, err := p.fetcher.Fetch(fetchCtx, doc.ContentRef)
	cancel()
	if err != nil {
		return nil, "", err
	}
	res, err := p.extractor.Extract(ctx, data, doc.FileType)
	if err != nil {
		return nil, "", err
	}
	p.logger.Debug("processor.text.extracted_on_demand", "document_id", id, "method", res.Method)
	return doc, res.Text, nil
}
