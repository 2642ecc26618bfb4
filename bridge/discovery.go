package bridge

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	ssdp "github.com/koron/go-ssdp"
)

const (
	ssdpServiceType = "urn:schemas-upnp-org:service:irbridge:1"
	zconfService    = "_irbridge._tcp"
	zconfDomain     = "local."
	ssdpMaxAge      = 3600
)

// listenPort extracts the port of the REST listener.
func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0
	}
	return port
}

func (s *HomeControlServer) location() string {
	host := s.getHostIp().String()
	return "http://" + net.JoinHostPort(host, strconv.Itoa(listenPort(s.Configuration.ListeningAddress))) + "/"
}

// ssdpAdvertise broadcasts the service name in the network using the ssdp protocol
func (s *HomeControlServer) ssdpAdvertise(quit <-chan bool) {
	hname, err := os.Hostname()
	if err != nil {
		s.Logger.Error("Error getting hostname: ", err)
	}

	ad, err := ssdp.Advertise(
		ssdpServiceType,     // send as "ST"
		"id:"+hname,         // send as "USN"
		s.location(),        // send as "LOCATION"
		"ssdp for irbridge", // send as "SERVER"
		ssdpMaxAge)          // send as "maxAge" in "CACHE-CONTROL"
	if err != nil {
		s.Logger.Error("Error advertising ssdp: ", err)
		return
	}

	aliveTick := time.NewTicker(5 * time.Second)
	defer aliveTick.Stop()

	for {
		select {
		case <-aliveTick.C:
			ad.Alive()
		case <-quit:
			s.Logger.Info("Closing ssdp service")
			ad.Bye()
			ad.Close()
			return
		}
	}
}

func (s *HomeControlServer) getHostIp() net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return net.IPv4zero
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ipv4 := ipnet.IP.To4(); ipv4 != nil {
			return ipv4
		}
	}
	return net.IPv4zero
}

// zconfRegister registers the bridge as a zeroconf service until quit closes
func (s *HomeControlServer) zconfRegister(quit <-chan bool) {
	myIp := s.getHostIp().String()
	hname, _ := os.Hostname()
	if hname == "" {
		hname = myIp
	}
	meta := []string{
		"version=0.1.0",
		"ip=" + myIp,
	}

	port := listenPort(s.Configuration.ListeningAddress)

	zservice, err := zeroconf.Register(
		hname,        // service instance name
		zconfService, // service type and protocol
		zconfDomain,  // service domain
		port,         // service port
		meta,         // service metadata
		nil,          // register on all network interfaces
	)
	if err != nil {
		s.Logger.Error("Error registering zeroconf service: ", err)
		return
	}
	defer zservice.Shutdown()

	<-quit
	s.Logger.Info("stopping zeroconf publishing server")
}
