package regs

import "context"

// RemoteStore is the authoritative record store records are mirrored to.
// Each call is independent; no ordering or batch guarantees hold across calls.
type RemoteStore interface {
	// Upsert creates or replaces the record stored under id.
	Upsert(ctx context.Context, collection, id string, rec Record) error

	// QueryByOwner returns every record in collection whose owner is ownerID.
	QueryByOwner(ctx context.Context, collection, ownerID string) ([]Record, error)

	// Delete removes id. Deleting an absent id is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// Attributed reports whether owner identifies a signed-in account.
func Attributed(owner string) bool {
	return owner != "" && owner != OfflineOwner
}

// remotePayload returns the document written to the remote store for rec:
// the synced flag is stripped, the owner attached, and unset measurements dropped.
func remotePayload(rec Record, owner string) Record {
	out := rec.Clone()
	out.Synced = nil
	out.OwnerID = owner
	out.Measurements = out.Measurements.Compact()
	return out
}

func upsertRecord(ctx context.Context, remote RemoteStore, collection string, rec Record, owner string) error {
	if err := remote.Upsert(ctx, collection, rec.ID, remotePayload(rec, owner)); err != nil {
		return &RemoteWriteError{Op: "upsert", ID: rec.ID, Err: err}
	}
	return nil
}

func deleteRecord(ctx context.Context, remote RemoteStore, collection, id string) error {
	if err := remote.Delete(ctx, collection, id); err != nil {
		return &RemoteWriteError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

// queryByOwner short-circuits to an empty result when no account is attributed.
func queryByOwner(ctx context.Context, remote RemoteStore, collection, owner string) ([]Record, error) {
	if !Attributed(owner) || remote == nil {
		return []Record{}, nil
	}
	records, err := remote.QueryByOwner(ctx, collection, owner)
	if err != nil {
		return nil, &RemoteReadError{Owner: owner, Err: err}
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
