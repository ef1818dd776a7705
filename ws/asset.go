package ws

import (
	"github.com/foxglove/foxglove-go/ws/protocol"
)

// AssetHandler resolves a fetchAsset request by URI. Installing one via
// Server.SetAssetHandler automatically advertises CapabilityAssets.
type AssetHandler interface {
	FetchAsset(uri string) ([]byte, error)
}

// AssetHandlerFunc adapts a plain function to AssetHandler.
type AssetHandlerFunc func(uri string) ([]byte, error)

func (f AssetHandlerFunc) FetchAsset(uri string) ([]byte, error) { return f(uri) }

// handleFetchAsset dispatches onto the Runtime so a slow asset source
// (disk, network) never blocks the reader goroutine. Success replies as
// a binary FetchAssetResponseFrame; failure as a JSON FetchAssetResponse
// carrying an error string.
func (s *Server) handleFetchAsset(cs *ClientSession, m protocol.FetchAsset) {
	s.mu.Lock()
	handler := s.assetHandler
	s.mu.Unlock()

	if handler == nil {
		cs.enqueue(cs.marshalOrLog(protocol.FetchAssetResponse{
			Op:        protocol.OpFetchAssetResponse,
			RequestID: m.RequestID,
			Status:    protocol.AssetStatusError,
			Error:     "no asset handler installed",
		}), true)
		return
	}

	handle := newClientHandle(cs)
	err := s.runtime.Spawn(func() {
		data, err := handler.FetchAsset(m.URI)
		if s.metrics != nil {
			s.metrics.AssetFetch(err)
		}
		if err != nil {
			b, _ := protocol.EncodeJSON(protocol.FetchAssetResponse{
				Op:        protocol.OpFetchAssetResponse,
				RequestID: m.RequestID,
				Status:    protocol.AssetStatusError,
				Error:     err.Error(),
			})
			handle.enqueue(b)
			return
		}
		handle.enqueue(protocol.EncodeFetchAssetResponse(protocol.FetchAssetResponseFrame{
			RequestID: m.RequestID,
			Payload:   data,
		}))
	})
	if err != nil {
		cs.enqueue(cs.marshalOrLog(protocol.FetchAssetResponse{
			Op:        protocol.OpFetchAssetResponse,
			RequestID: m.RequestID,
			Status:    protocol.AssetStatusError,
			Error:     "server is shutting down",
		}), true)
	}
}
