package rpc

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/logging"
	"github.com/xbucks-network/diplomat-node/internal/peerstore"
	"github.com/xbucks-network/diplomat-node/internal/pod"
	"github.com/xbucks-network/diplomat-node/internal/rpcauth"
)

const testSecret = "shared-secret"

func newTestServer(t *testing.T) (*Server, *httptest.Server, *Client) {
	t.Helper()
	dir := t.TempDir()

	ledger, err := ledgerstore.Open(filepath.Join(dir, "ledger.data"), filepath.Join(dir, "ledger.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	peers, err := peerstore.Open(filepath.Join(dir, "peers.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { peers.Close() })

	engine := pod.New(pod.DefaultParams(), nil)
	mc := clock.NewMock()
	mc.Set(time.Now())
	verifier := rpcauth.NewVerifier([]byte(testSecret), 0, mc)

	srv := New("127.0.0.1", 7220, ledger, peers, engine, verifier, nil, logging.NewDevelopment())

	mux := httptest.NewServer(srv.Handler())
	t.Cleanup(mux.Close)

	client := NewClient(time.Second, rpcauth.NewSigner([]byte(testSecret), mc))
	return srv, mux, client
}

func TestPingRoundTrip(t *testing.T) {
	_, httpSrv, client := newTestServer(t)
	result, err := client.Ping(context.Background(), httpSrv.URL+"/")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Time)
}

func TestAnnounceUpsertsPeer(t *testing.T) {
	srv, httpSrv, client := newTestServer(t)
	result, err := client.Announce(context.Background(), httpSrv.URL+"/", "10.0.0.5", 9000)
	require.NoError(t, err)
	require.True(t, result.Success)

	peers, err := srv.peers.List()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, "10.0.0.5", peers[0].Host)
}

func TestGetLedgerReturnsEmptyLedger(t *testing.T) {
	_, httpSrv, client := newTestServer(t)
	result, err := client.GetLedger(context.Background(), httpSrv.URL+"/")
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestReceiveBlockRejectsMalformedPayload(t *testing.T) {
	_, httpSrv, client := newTestServer(t)
	result, err := client.ReceiveBlock(context.Background(), httpSrv.URL+"/", []byte("not-json"))
	require.NoError(t, err)
	require.False(t, result.Success)
}

func TestReceiveBlockWithoutHandlerReportsUnwired(t *testing.T) {
	_, httpSrv, client := newTestServer(t)
	block := ledgerstore.Block{Index: 0}
	payload, err := json.Marshal(block)
	require.NoError(t, err)

	result, err := client.ReceiveBlock(context.Background(), httpSrv.URL+"/", payload)
	require.NoError(t, err)
	require.False(t, result.Success)
}

func TestWrongSecretFailsAuth(t *testing.T) {
	_, httpSrv, _ := newTestServer(t)
	badClient := NewClient(time.Second, rpcauth.NewSigner([]byte("wrong-secret"), nil))

	result, err := badClient.Ping(context.Background(), httpSrv.URL+"/")
	require.NoError(t, err)
	require.False(t, result.Success)
}
