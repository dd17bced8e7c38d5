package api

import (
	"context"

	"connectrpc.com/connect"
)

// Client calls the StudyService over Connect with the JSON codec.
type Client struct {
	getSession     *connect.Client[GetSessionRequest, GetSessionResponse]
	getStandings   *connect.Client[GetStandingsRequest, GetStandingsResponse]
	getSolvingInfo *connect.Client[GetSolvingInfoRequest, GetSolvingInfoResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		getSession:     connect.NewClient[GetSessionRequest, GetSessionResponse](httpClient, baseURL+GetSessionProcedure, opts...),
		getStandings:   connect.NewClient[GetStandingsRequest, GetStandingsResponse](httpClient, baseURL+GetStandingsProcedure, opts...),
		getSolvingInfo: connect.NewClient[GetSolvingInfoRequest, GetSolvingInfoResponse](httpClient, baseURL+GetSolvingInfoProcedure, opts...),
	}
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*GetSessionResponse, error) {
	resp, err := c.getSession.CallUnary(ctx, connect.NewRequest(&GetSessionRequest{SessionID: sessionID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) GetStandings(ctx context.Context, sessionID string) (*GetStandingsResponse, error) {
	resp, err := c.getStandings.CallUnary(ctx, connect.NewRequest(&GetStandingsRequest{SessionID: sessionID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) GetSolvingInfo(ctx context.Context, participantID string) (*GetSolvingInfoResponse, error) {
	resp, err := c.getSolvingInfo.CallUnary(ctx, connect.NewRequest(&GetSolvingInfoRequest{ParticipantID: participantID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
