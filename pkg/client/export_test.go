package client

var NewTestServer = newTestServer
