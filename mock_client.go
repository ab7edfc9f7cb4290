package main

import (
	"os"
	"sync"
)

type MockRequest struct {
	Action string
	Bucket string
	Key    string
}

// MockBucketClient records every gateway call in arrival order so tests
// can assert both counts and relative ordering.
type MockBucketClient struct {
	Requests  []MockRequest
	mockList  map[string]struct{}
	ListErr   error
	UploadErr error
	DeleteErr error
	lock      sync.Mutex
}

func NewMockClient(mocked map[string]struct{}) *MockBucketClient {
	if mocked == nil {
		mocked = make(map[string]struct{})
	}
	return &MockBucketClient{
		Requests: make([]MockRequest, 0),
		mockList: mocked,
	}
}

func (m *MockBucketClient) ListObjects(bucket string) (map[string]struct{}, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	keys := make(map[string]struct{}, len(m.mockList))
	for key := range m.mockList {
		keys[key] = struct{}{}
	}
	return keys, nil
}

func (m *MockBucketClient) UploadFile(bucket string, key string, file *os.File) error {
	m.record(MockRequest{Action: "Upload", Bucket: bucket, Key: key})
	return m.UploadErr
}

func (m *MockBucketClient) DeleteObject(bucket string, key string) error {
	m.record(MockRequest{Action: "Delete", Bucket: bucket, Key: key})
	return m.DeleteErr
}

func (m *MockBucketClient) record(req MockRequest) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.Requests = append(m.Requests, req)
}

func (m *MockBucketClient) RequestLog() []MockRequest {
	m.lock.Lock()
	defer m.lock.Unlock()
	requests := make([]MockRequest, len(m.Requests))
	copy(requests, m.Requests)
	return requests
}

func (m *MockBucketClient) RequestsByAction(action string) []MockRequest {
	matched := make([]MockRequest, 0)
	for _, req := range m.RequestLog() {
		if req.Action == action {
			matched = append(matched, req)
		}
	}
	return matched
}
