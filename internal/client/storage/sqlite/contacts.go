package sqlite

import (
	"fmt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

const contactColumns = `id, name, phone, email, favorite, synced, last_transaction`

// contacts implements storage.ContactCollection
type contacts struct {
	t *tx
}

func scanContact(row scanner) (*models.Contact, error) {
	var (
		c                models.Contact
		favorite, synced int
		last             int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &favorite, &synced, &last); err != nil {
		return nil, err
	}
	c.Favorite = favorite == 1
	c.Synced = synced == 1
	c.LastTransaction = fromMS(last)
	return &c, nil
}

func (s *contacts) Put(c *models.Contact) error {
	_, err := s.t.exec(`INSERT OR REPLACE INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, c.Email, boolToInt(c.Favorite), boolToInt(c.Synced), ms(c.LastTransaction))
	if err != nil {
		return fmt.Errorf("failed to save contact %s: %w", c.ID, err)
	}
	return nil
}

func (s *contacts) Get(id string) (*models.Contact, error) {
	return queryOne(s.t, scanContact, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
}

func (s *contacts) Delete(id string) error {
	return s.t.deleteByID(tableContacts, id)
}

func (s *contacts) List() ([]*models.Contact, error) {
	return queryAll(s.t, scanContact, `SELECT `+contactColumns+` FROM contacts ORDER BY name, id`)
}

func (s *contacts) Favorites() ([]*models.Contact, error) {
	return queryAll(s.t, scanContact, `SELECT `+contactColumns+` FROM contacts WHERE favorite = 1 ORDER BY name, id`)
}

var _ storage.ContactCollection = (*contacts)(nil)
