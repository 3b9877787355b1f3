package postgres

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/vedran77/chronofeed/internal/domain"
)

// psql builds queries with pgx's $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func encodeAttachments(a []domain.Attachment) ([]byte, error) {
	if a == nil {
		a = []domain.Attachment{}
	}
	return json.Marshal(a)
}

func decodeAttachments(raw []byte) ([]domain.Attachment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a []domain.Attachment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	if len(a) == 0 {
		return nil, nil
	}
	return a, nil
}
