package bungie

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		MaxAttempts: 3,
	})
	client.backoffBase = time.Millisecond
	t.Cleanup(client.Close)
	return client
}

func TestRequestTimeoutIsConfigurable(t *testing.T) {
	client := New(Config{RequestTimeout: 5 * time.Second})
	t.Cleanup(client.Close)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)

	fallback := New(Config{})
	t.Cleanup(fallback.Close)
	assert.Equal(t, defaultTimeout, fallback.httpClient.Timeout)
}

func TestGetProfileDecodesEnvelope(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		fmt.Fprint(w, `{
			"Response": {
				"profile": {
					"data": {
						"userInfo": {"membershipId": "123", "membershipType": 3, "displayName": "Guardian"},
						"characterIds": ["c1", "c2"]
					}
				}
			},
			"ErrorCode": 1,
			"ErrorStatus": "Success"
		}`)
	})

	profile, err := client.GetProfile(context.Background(), 3, "123")
	require.NoError(t, err)
	assert.Equal(t, "Guardian", profile.UserInfo.DisplayName)
	assert.Equal(t, []string{"c1", "c2"}, profile.CharacterIDs)
}

func TestPrivacyRestrictedEnvelopeIsTypedError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ErrorCode": 1665, "ErrorStatus": "DestinyPrivacyRestriction", "Message": "restricted"}`)
	})

	_, err := client.GetProfile(context.Background(), 3, "123")
	require.Error(t, err)
	assert.True(t, IsPrivacyRestricted(err))
	assert.False(t, IsTransient(err))
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"Response": {"activities": []}, "ErrorCode": 1}`)
	})

	entries, err := client.GetActivityHistory(context.Background(), 3, "123", "c1", 25, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int64(3), calls.Load())
}

func TestRetryBudgetExhausts(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetActivityHistory(context.Background(), 3, "123", "c1", 25, 0)
	require.Error(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestNonTransientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"ErrorCode": 1601, "ErrorStatus": "DestinyAccountNotFound"}`)
	})

	_, err := client.GetProfile(context.Background(), 3, "123")
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1601, apiErr.Code)
}

func TestGetGroupMembersFollowsPagingCursor(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("currentPage") {
		case "1":
			fmt.Fprint(w, `{"Response": {"results": [{"destinyUserInfo": {"membershipId": "100"}}], "hasMore": true}, "ErrorCode": 1}`)
		default:
			fmt.Fprint(w, `{"Response": {"results": [{"destinyUserInfo": {"membershipId": "200"}}], "hasMore": false}, "ErrorCode": 1}`)
		}
	})

	members, err := client.GetGroupMembers(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "100", members[0].DestinyUserInfo.MembershipID)
	assert.Equal(t, "200", members[1].DestinyUserInfo.MembershipID)
}

func TestGetGroupsForMemberUnwrapsGroups(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"Response": {"results": [{"group": {"groupId": "42", "name": "Test Clan"}}]}, "ErrorCode": 1}`)
	})

	groups, err := client.GetGroupsForMember(context.Background(), 3, "123")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "42", groups[0].GroupID)
	assert.Equal(t, "Test Clan", groups[0].Name)
}
