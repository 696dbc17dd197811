package broker

import (
	"math/rand"
	"net"
	"strconv"
)

// LookupSrv returns host:port strings for name, in the order the SRV
// lookup returned them.
func LookupSrv(name string) ([]string, error) {
	_, srvs, err := net.LookupSRV("", "", name)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(srvs))
	for _, srv := range srvs {
		addrs = append(addrs, net.JoinHostPort(srv.Target, strconv.Itoa(int(srv.Port))))
	}
	return addrs, nil
}

// RandomBroker resolves name via LookupSrv and returns one address chosen
// at random. If the lookup fails, or returns nothing, name is returned
// unmodified, so a bare "host:port" bootstrap address works unchanged.
func RandomBroker(name string) string {
	addrs, err := LookupSrv(name)
	if err != nil || len(addrs) == 0 {
		return name
	}
	return addrs[rand.Intn(len(addrs))]
}
