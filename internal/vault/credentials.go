package vault

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ftsujikawa/password/internal/generate"
	"github.com/ftsujikawa/password/internal/store"
)

// ErrEmptyPatch is returned by Update when no field was supplied.
var ErrEmptyPatch = errors.New("vault: nothing to update")

// Credential is the decrypted view handed to callers. Password holds
// plaintext, or the raw stored ciphertext when decryption failed.
type Credential struct {
	ID        string
	URL       string
	Username  string
	Password  string
	Title     string
	Note      string
	CreatedAt string
}

// CredentialPatch carries one optional slot per mutable field. A nil slot
// leaves the stored value untouched.
type CredentialPatch struct {
	URL      *string
	Username *string
	Password *string
	Title    *string
	Note     *string
}

func (p CredentialPatch) Empty() bool {
	return p.URL == nil && p.Username == nil && p.Password == nil && p.Title == nil && p.Note == nil
}

// AddCredential inserts a new entry for url, or upserts onto the most recent
// existing one: username and password are overwritten, title and note are
// merged (an explicit new value wins, an omitted one preserves what was
// there). The id and created_at of an upserted entry never change, so the
// password is re-encrypted under the same id-derived key.
func (v *Vault) AddCredential(ctx context.Context, url, username, password string, title, note *string) (Credential, error) {
	if err := v.guard.Require(); err != nil {
		return Credential{}, err
	}

	existing, found, err := v.store.LatestCredentialByURL(ctx, url)
	if err != nil {
		return Credential{}, err
	}

	if found {
		blob, err := v.seal(existing.ID, password)
		if err != nil {
			return Credential{}, err
		}
		existing.Username = username
		existing.Password = blob
		if title != nil {
			existing.Title = *title
		}
		if note != nil {
			existing.Note = *note
		}
		if err := v.store.UpdateCredential(ctx, existing); err != nil {
			return Credential{}, err
		}
		v.record("credential.add url=" + url)
		return v.view(existing), nil
	}

	rec := store.Credential{
		ID:        v.newID(),
		URL:       url,
		Username:  username,
		CreatedAt: v.timestamp(),
	}
	blob, err := v.seal(rec.ID, password)
	if err != nil {
		return Credential{}, err
	}
	rec.Password = blob
	if title != nil {
		rec.Title = *title
	}
	if note != nil {
		rec.Note = *note
	}
	if err := v.store.InsertCredential(ctx, rec); err != nil {
		return Credential{}, err
	}
	v.record("credential.add url=" + url)
	return v.view(rec), nil
}

// AddCredentialSecret resolves secretOrLength before adding: a positive
// integer means "generate a password of that length", anything else is taken
// verbatim, and an empty value generates the default length.
func (v *Vault) AddCredentialSecret(ctx context.Context, url, username, secretOrLength string, title, note *string) (Credential, error) {
	password, err := ResolveSecret(secretOrLength)
	if err != nil {
		return Credential{}, err
	}
	return v.AddCredential(ctx, url, username, password, title, note)
}

// ResolveSecret implements the password-or-length convention of the add
// command.
func ResolveSecret(secretOrLength string) (string, error) {
	if secretOrLength == "" {
		return generate.Password(generate.DefaultLength)
	}
	if n, err := strconv.Atoi(secretOrLength); err == nil && n > 0 {
		return generate.Password(n)
	}
	return secretOrLength, nil
}

// GetByURL returns every entry whose url matches exactly, passwords
// decrypted.
func (v *Vault) GetByURL(ctx context.Context, url string) ([]Credential, error) {
	if err := v.guard.Require(); err != nil {
		return nil, err
	}
	recs, err := v.store.CredentialsByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	out := make([]Credential, 0, len(recs))
	for _, r := range recs {
		out = append(out, v.view(r))
	}
	return out, nil
}

// Search returns entries with a case-insensitive substring match in any of
// id, url, username, title or note, ordered by id descending.
func (v *Vault) Search(ctx context.Context, keyword string) ([]Credential, error) {
	if err := v.guard.Require(); err != nil {
		return nil, err
	}
	recs, err := v.store.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	kw := strings.ToLower(keyword)
	var out []Credential
	for _, r := range recs {
		hay := strings.ToLower(strings.Join([]string{r.ID, r.URL, r.Username, r.Title, r.Note}, "\n"))
		if strings.Contains(hay, kw) {
			out = append(out, v.view(r))
		}
	}
	return out, nil
}

// Update applies the supplied patch fields to the entry with the given id
// and fails with ErrNotFound when it does not exist. A new password is
// re-encrypted under the same id-derived key; id and created_at are
// immutable.
func (v *Vault) Update(ctx context.Context, id string, patch CredentialPatch) (Credential, error) {
	if err := v.guard.Require(); err != nil {
		return Credential{}, err
	}
	if patch.Empty() {
		return Credential{}, ErrEmptyPatch
	}

	rec, err := v.store.GetCredential(ctx, id)
	if err != nil {
		return Credential{}, err
	}
	if patch.URL != nil {
		rec.URL = *patch.URL
	}
	if patch.Username != nil {
		rec.Username = *patch.Username
	}
	if patch.Password != nil {
		blob, err := v.seal(rec.ID, *patch.Password)
		if err != nil {
			return Credential{}, err
		}
		rec.Password = blob
	}
	if patch.Title != nil {
		rec.Title = *patch.Title
	}
	if patch.Note != nil {
		rec.Note = *patch.Note
	}
	if err := v.store.UpdateCredential(ctx, rec); err != nil {
		return Credential{}, err
	}
	v.record("credential.update id=" + id)
	return v.view(rec), nil
}

// Delete removes the entry with the given id. Deleting an id that does not
// exist is not an error for credentials.
func (v *Vault) Delete(ctx context.Context, id string) error {
	if err := v.guard.Require(); err != nil {
		return err
	}
	if err := v.store.DeleteCredential(ctx, id); err != nil {
		return err
	}
	v.record("credential.delete id=" + id)
	return nil
}

// ExportCredentials returns every entry decrypted, newest first.
func (v *Vault) ExportCredentials(ctx context.Context) ([]Credential, error) {
	if err := v.guard.Require(); err != nil {
		return nil, err
	}
	recs, err := v.store.ListCredentialsByCreated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Credential, 0, len(recs))
	for _, r := range recs {
		out = append(out, v.view(r))
	}
	return out, nil
}

func (v *Vault) view(r store.Credential) Credential {
	return Credential{
		ID:        r.ID,
		URL:       r.URL,
		Username:  r.Username,
		Password:  v.reveal(r.ID, r.Password),
		Title:     r.Title,
		Note:      r.Note,
		CreatedAt: r.CreatedAt,
	}
}
