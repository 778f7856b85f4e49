package avatarnft

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/metadata"
	"github.com/vitwit/avatarnft/types"
)

// requireAdmin is the privilege guard of every administrative operation.
func (e *Engine) requireAdmin(caller common.Address) error {
	if caller != e.admin {
		return types.NewError(types.ErrUnauthorized, "caller %s is not the admin", caller.Hex())
	}
	return nil
}

// AddToken registers token, or replaces its oracle. It applies to every
// conversion that starts after it returns.
func (e *Engine) AddToken(caller, token, oracle common.Address) error {
	if err := e.requireAdmin(caller); err != nil {
		e.logger.Warn("addToken refused", map[string]any{"caller": caller.Hex()})
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	previous, replaced := e.registry.GetOracle(token)
	if err := e.store.WriteToken(types.TokenEntry{Token: token, Oracle: oracle}); err != nil {
		return err
	}
	e.registry.AddToken(token, oracle)

	fields := map[string]any{"token": token.Hex(), "oracle": oracle.Hex()}
	if replaced {
		fields["previous_oracle"] = previous.Hex()
	}
	e.logger.Info("token registered", fields)
	return nil
}

// SetCollectionMetadata replaces the collection document. Last write wins.
func (e *Engine) SetCollectionMetadata(caller common.Address, description, image, link string) (string, error) {
	if err := e.requireAdmin(caller); err != nil {
		e.logger.Warn("setCollectionMetadata refused", map[string]any{"caller": caller.Hex()})
		return "", err
	}

	doc, uri, err := metadata.BuildCollectionMetadata(e.config.Name, description, image, link, e.feeRecipient)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.WriteCollection(doc); err != nil {
		return "", err
	}
	e.collection = doc
	e.collectionURI = uri
	e.logger.Info("collection metadata updated", map[string]any{"image": image, "link": link})
	return uri, nil
}

// SetCurrentWebpage replaces the collection webpage.
func (e *Engine) SetCurrentWebpage(caller common.Address, uri string) error {
	if err := e.requireAdmin(caller); err != nil {
		e.logger.Warn("setCurrentWebpage refused", map[string]any{"caller": caller.Hex()})
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.WriteWebpage(uri); err != nil {
		return err
	}
	e.webpage = uri
	e.logger.Info("webpage updated", map[string]any{"uri": uri})
	return nil
}
