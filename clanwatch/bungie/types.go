package bungie

import (
	"encoding/json"
	"time"
)

// Bungie application-level error codes carried inside the response
// envelope, distinct from the HTTP status.
const (
	errorCodeSuccess        = 1
	errorCodePrivateHistory = 1665
)

// envelope is the wrapper every Platform endpoint returns.
type envelope struct {
	Response        json.RawMessage `json:"Response"`
	ErrorCode       int             `json:"ErrorCode"`
	ErrorStatus     string          `json:"ErrorStatus"`
	Message         string          `json:"Message"`
	ThrottleSeconds int             `json:"ThrottleSeconds"`
}

// UserInfo identifies a player on one membership platform.
type UserInfo struct {
	MembershipID   string `json:"membershipId"`
	MembershipType int    `json:"membershipType"`
	DisplayName    string `json:"displayName"`
	IsPublic       bool   `json:"isPublic"`
}

// Profile is the components=100 profile summary.
type Profile struct {
	UserInfo     UserInfo
	CharacterIDs []string
}

type profileResponse struct {
	Profile struct {
		Data struct {
			UserInfo     UserInfo `json:"userInfo"`
			CharacterIDs []string `json:"characterIds"`
		} `json:"data"`
	} `json:"profile"`
}

// ActivityEntry is one row of a character's activity history, newest first.
type ActivityEntry struct {
	Period  time.Time       `json:"period"`
	Details ActivityDetails `json:"activityDetails"`
	Values  ActivityValues  `json:"values"`
}

type ActivityDetails struct {
	InstanceID string `json:"instanceId"`
	Mode       int    `json:"mode"`
}

type ActivityValues struct {
	TimePlayedSeconds StatValue `json:"timePlayedSeconds"`
}

type StatValue struct {
	Basic BasicValue `json:"basic"`
}

type BasicValue struct {
	Value        float64 `json:"value"`
	DisplayValue string  `json:"displayValue"`
}

type activityHistoryResponse struct {
	Activities []ActivityEntry `json:"activities"`
}

// CarnageReport lists every participant of one recorded play session.
type CarnageReport struct {
	Entries []CarnageEntry `json:"entries"`
}

type CarnageEntry struct {
	Player CarnagePlayer `json:"player"`
}

type CarnagePlayer struct {
	DestinyUserInfo UserInfo `json:"destinyUserInfo"`
}

// GroupMember is one entry of a clan membership page.
type GroupMember struct {
	DestinyUserInfo UserInfo  `json:"destinyUserInfo"`
	JoinDate        time.Time `json:"joinDate"`
}

type groupMembersResponse struct {
	Results []GroupMember `json:"results"`
	HasMore bool          `json:"hasMore"`
}

// GroupInfo summarizes a clan a player belongs to.
type GroupInfo struct {
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
}

type groupsForMemberResponse struct {
	Results []struct {
		Group GroupInfo `json:"group"`
	} `json:"results"`
}
