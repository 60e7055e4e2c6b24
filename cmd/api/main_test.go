package main

import (
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenReleasesResourcesWhenPortIsBusy(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	released := 0
	apiServer := &http.Server{Addr: busy.Addr().String(), Handler: http.NotFoundHandler()}
	err = listen(apiServer, func() { released++ })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server error")
	assert.Equal(t, 1, released)
}
