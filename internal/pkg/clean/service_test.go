package clean

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/callqa/callqa/internal/pkg/test"
	"github.com/callqa/callqa/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
)

var (
	cleanerMock *mocks.Cleaner
	tData       *Data
	tEcho       *echo.Echo
)

func initTest(t *testing.T) {
	cleanerMock = &mocks.Cleaner{}
	tData = &Data{}
	tData.Cleaner = cleanerMock
	tEcho = initRoutes(tData)
	cleanerMock.On("Clean", mock.Anything, mock.Anything).Return(nil)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, 404)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/delete/1", nil)
	test.Code(t, tEcho, req, 405)
}

func TestDelete(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodDelete, "/delete/1", nil)
	test.Code(t, tEcho, req, 200)
	cleanerMock.AssertCalled(t, "Clean", mock.Anything, "1")
}

func TestDelete_Fail(t *testing.T) {
	initTest(t)
	cleanerMock.ExpectedCalls = nil
	cleanerMock.On("Clean", mock.Anything, mock.Anything).Return(fmt.Errorf("olia err"))
	req := httptest.NewRequest(http.MethodDelete, "/delete/1", nil)
	test.Code(t, tEcho, req, 500)
}

func TestLive(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, 200)
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *Data
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &Data{Cleaner: cleanerMock}}, wantErr: false},
		{name: "Fail", args: args{data: &Data{}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
